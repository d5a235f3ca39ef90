package services_test

import (
	"context"
	"sync"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	"golang.org/x/crypto/bcrypt"
	gc "gopkg.in/check.v1"
	"gorm.io/gorm"

	"stackit-backend/models/qa"
	"stackit-backend/models/users"
	"stackit-backend/services"
	coretesting "stackit-backend/testing"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []services.Mail
}

func (m *recordingMailer) Send(_ context.Context, mail services.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

type UserSuite struct {
	db      *gorm.DB
	mailer  *recordingMailer
	service *services.UserService
}

var _ = gc.Suite(&UserSuite{})

func (s *UserSuite) SetUpTest(c *gc.C) {
	s.db = coretesting.NewDB(c)
	s.mailer = &recordingMailer{}
	s.service = &services.UserService{DB: s.db, Mailer: s.mailer, HashCost: bcrypt.MinCost}
}

func (s *UserSuite) TearDownTest(c *gc.C) {
	coretesting.CloseDB(c, s.db)
}

func (s *UserSuite) register(c *gc.C, username string) *users.User {
	u, err := s.service.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: coretesting.Password,
	})
	c.Assert(err, jc.ErrorIsNil)
	return u
}

func (s *UserSuite) TestRegister(c *gc.C) {
	u := s.register(c, "alice")
	c.Check(u.ID, gc.Not(gc.Equals), uint(0))
	c.Check(u.Role, gc.Equals, users.RoleUser)
	c.Check(u.Provider, gc.Equals, users.ProviderLocal)
	c.Check(u.PasswordHash, gc.Not(gc.Equals), coretesting.Password)

	c.Assert(s.mailer.sent, gc.HasLen, 1)
	c.Check(s.mailer.sent[0].To, gc.Equals, "alice@example.com")
}

func (s *UserSuite) TestRegisterDuplicate(c *gc.C) {
	s.register(c, "alice")
	ctx := context.Background()

	_, err := s.service.Register(ctx, services.RegisterInput{Username: "alice", Email: "other@example.com", Password: coretesting.Password})
	c.Assert(err, jc.Satisfies, errors.IsAlreadyExists)
	_, err = s.service.Register(ctx, services.RegisterInput{Username: "alice2", Email: "alice@example.com", Password: coretesting.Password})
	c.Assert(err, jc.Satisfies, errors.IsAlreadyExists)
}

func (s *UserSuite) TestRegisterInvalid(c *gc.C) {
	_, err := s.service.Register(context.Background(), services.RegisterInput{Username: "al"})
	c.Assert(err, gc.FitsTypeOf, services.ValidationErrors{})
	c.Assert(s.mailer.sent, gc.HasLen, 0)
}

func (s *UserSuite) TestAuthenticate(c *gc.C) {
	s.register(c, "alice")
	ctx := context.Background()

	u, err := s.service.Authenticate(ctx, "alice", coretesting.Password)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(u.Username, gc.Equals, "alice")

	u, err = s.service.Authenticate(ctx, "alice@example.com", coretesting.Password)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(u.Username, gc.Equals, "alice")

	_, err = s.service.Authenticate(ctx, "alice", "Wrong1234")
	c.Assert(err, jc.Satisfies, errors.IsUnauthorized)
	_, err = s.service.Authenticate(ctx, "nobody", coretesting.Password)
	c.Assert(err, jc.Satisfies, errors.IsUnauthorized)
}

func (s *UserSuite) TestAuthenticateBanned(c *gc.C) {
	u := s.register(c, "alice")
	c.Assert(s.db.Model(u).Update("banned", true).Error, jc.ErrorIsNil)
	_, err := s.service.Authenticate(context.Background(), "alice", coretesting.Password)
	c.Assert(err, jc.Satisfies, errors.IsForbidden)
}

func (s *UserSuite) TestUpdateProfile(c *gc.C) {
	u := s.register(c, "alice")
	s.register(c, "bob")
	ctx := context.Background()

	taken := "bob@example.com"
	_, err := s.service.UpdateProfile(ctx, u.ID, services.ProfileInput{Email: &taken})
	c.Assert(err, jc.Satisfies, errors.IsAlreadyExists)

	bad := "not an email"
	_, err = s.service.UpdateProfile(ctx, u.ID, services.ProfileInput{Email: &bad})
	c.Assert(err, gc.FitsTypeOf, services.ValidationErrors{})

	email := "alice@new.example.com"
	name := "alice_b"
	got, err := s.service.UpdateProfile(ctx, u.ID, services.ProfileInput{Username: &name, Email: &email})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got.Username, gc.Equals, "alice_b")
	c.Check(got.Email, gc.Equals, email)
}

func (s *UserSuite) TestChangePassword(c *gc.C) {
	u := s.register(c, "alice")
	ctx := context.Background()

	err := s.service.ChangePassword(ctx, u.ID, "Wrong1234", "Another123")
	c.Assert(err, gc.FitsTypeOf, services.ValidationErrors{})
	err = s.service.ChangePassword(ctx, u.ID, coretesting.Password, "weak")
	c.Assert(err, gc.FitsTypeOf, services.ValidationErrors{})

	c.Assert(s.service.ChangePassword(ctx, u.ID, coretesting.Password, "Another123"), jc.ErrorIsNil)
	_, err = s.service.Authenticate(ctx, "alice", "Another123")
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.service.Authenticate(ctx, "alice", coretesting.Password)
	c.Assert(err, jc.Satisfies, errors.IsUnauthorized)
}

func (s *UserSuite) TestList(c *gc.C) {
	for _, name := range []string{"alice", "bob", "albert"} {
		s.register(c, name)
	}
	list, total, err := s.service.List(context.Background(), "AL", services.Page{})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(total, gc.Equals, int64(2))
	c.Assert(list, gc.HasLen, 2)

	_, total, err = s.service.List(context.Background(), "", services.Page{PerPage: 1})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(total, gc.Equals, int64(3))
}

func (s *UserSuite) TestSetBanned(c *gc.C) {
	admin := coretesting.CreateUser(c, s.db, "root", users.RoleAdmin)
	other := coretesting.CreateUser(c, s.db, "boss", users.RoleAdmin)
	u := s.register(c, "alice")
	ctx := context.Background()

	_, err := s.service.SetBanned(ctx, admin, admin.ID, true)
	c.Assert(err, jc.Satisfies, errors.IsBadRequest)
	_, err = s.service.SetBanned(ctx, admin, other.ID, true)
	c.Assert(err, jc.Satisfies, errors.IsBadRequest)
	_, err = s.service.SetBanned(ctx, admin, 999, true)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)

	got, err := s.service.SetBanned(ctx, admin, u.ID, true)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(got.Banned, jc.IsTrue)

	got, err = s.service.SetBanned(ctx, admin, u.ID, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(got.Banned, jc.IsFalse)
}

func (s *UserSuite) TestFindOrCreateGoogleUser(c *gc.C) {
	existing := s.register(c, "alice")
	ctx := context.Background()

	u, err := s.service.FindOrCreateGoogleUser(ctx, "alice@example.com", "Alice Liddell")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(u.ID, gc.Equals, existing.ID)

	u, err = s.service.FindOrCreateGoogleUser(ctx, "new.person@example.com", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(u.Username, gc.Equals, "new_person")
	c.Check(u.Provider, gc.Equals, users.ProviderGoogle)

	u, err = s.service.FindOrCreateGoogleUser(ctx, "alice@elsewhere.example.com", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(u.Username, gc.Equals, "alice1")

	// Google accounts have no password to log in with.
	_, err = s.service.Authenticate(ctx, "new_person", "")
	c.Assert(err, gc.FitsTypeOf, services.ValidationErrors{})
}

func (s *UserSuite) TestProfile(c *gc.C) {
	u := s.register(c, "alice")
	q := qa.Question{UserID: u.ID, Title: "A question title", Description: "Some description text here"}
	c.Assert(s.db.Create(&q).Error, jc.ErrorIsNil)
	c.Assert(s.db.Create(&qa.Answer{QuestionID: q.ID, UserID: u.ID, Content: "An answer that is long enough"}).Error, jc.ErrorIsNil)

	p, err := s.service.Profile(context.Background(), "alice")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(p.User.Email, gc.Equals, "")
	c.Check(p.QuestionCount, gc.Equals, int64(1))
	c.Check(p.AnswerCount, gc.Equals, int64(1))
	c.Assert(p.Recent.Questions, gc.HasLen, 1)
	c.Check(p.Recent.Questions[0].Author, gc.Equals, "alice")
	c.Assert(p.Recent.Answers, gc.HasLen, 1)

	_, err = s.service.Profile(context.Background(), "nobody")
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}
