// Package services holds the persistence backed operations of the Q&A
// backend. Handlers in controllers/ decode requests and call into here.
package services

import (
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gorm.io/gorm"
)

var logger = loggo.GetLogger("stackit.services")

// findErr turns a lookup failure into a NotFound error for what.
func findErr(err error, what string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFoundf("%s %v", what, id)
	}
	return errors.Annotatef(err, "loading %s %v", what, id)
}
