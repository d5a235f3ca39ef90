// Package testing holds helpers shared by the package tests.
package testing

import (
	"time"

	jc "github.com/juju/testing/checkers"
	"golang.org/x/crypto/bcrypt"
	gc "gopkg.in/check.v1"
	"gorm.io/gorm"

	"stackit-backend/config"
	"stackit-backend/models/users"
)

const (
	// LongWait bounds waits for things that are expected to happen.
	LongWait = 10 * time.Second

	// ShortWait is how long to wait to be fairly sure something does not happen.
	ShortWait = 50 * time.Millisecond
)

// Password is the plain text password of users made by CreateUser.
const Password = "Secret123"

// NewDB returns a migrated in-memory sqlite database closed at the end of the test.
func NewDB(c *gc.C) *gorm.DB {
	db, err := config.InitDB(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(config.Migrate(db), jc.ErrorIsNil)
	return db
}

// CloseDB releases the database from NewDB.
func CloseDB(c *gc.C, db *gorm.DB) {
	sqlDB, err := db.DB()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(sqlDB.Close(), jc.ErrorIsNil)
}

// CreateUser stores a local user with Password.
func CreateUser(c *gc.C, db *gorm.DB, username, role string) *users.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	c.Assert(err, jc.ErrorIsNil)
	u := &users.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Provider:     users.ProviderLocal,
	}
	c.Assert(db.Create(u).Error, jc.ErrorIsNil)
	return u
}
