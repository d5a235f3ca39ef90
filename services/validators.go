package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
)

// ValidationErrors - field name to message. Handlers return it as a 400 body.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f+": "+v[f])
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// orNil keeps a nil error interface for an empty map.
func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validateUsername(errs ValidationErrors, username string) {
	n := utf8.RuneCountInString(username)
	switch {
	case username == "":
		errs["username"] = "Username is required"
	case n < 3:
		errs["username"] = "Username must be at least 3 characters"
	case n > 50:
		errs["username"] = "Username cannot exceed 50 characters"
	case !usernamePattern.MatchString(username):
		errs["username"] = "Username can only contain letters, numbers, and underscores"
	}
}

func validateEmail(errs ValidationErrors, email string) {
	if email == "" {
		errs["email"] = "Email is required"
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs["email"] = "Invalid email format"
	}
}

func validatePassword(errs ValidationErrors, field, password string) {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case password == "":
		errs[field] = "Password is required"
	case len(password) < 8:
		errs[field] = "Password must be at least 8 characters"
	case !upper:
		errs[field] = "Password must contain at least one uppercase letter"
	case !lower:
		errs[field] = "Password must contain at least one lowercase letter"
	case !digit:
		errs[field] = "Password must contain at least one number"
	}
}

// ValidateRegistration checks a sign up request.
func ValidateRegistration(in RegisterInput) error {
	errs := ValidationErrors{}
	validateUsername(errs, in.Username)
	validateEmail(errs, in.Email)
	validatePassword(errs, "password", in.Password)
	return errs.orNil()
}

func ValidateLogin(username, password string) error {
	errs := ValidationErrors{}
	if username == "" {
		errs["username"] = "Username is required"
	}
	if password == "" {
		errs["password"] = "Password is required"
	}
	return errs.orNil()
}

// ValidateQuestion checks a question body. Tag rules apply to the raw names.
func ValidateQuestion(in QuestionInput) error {
	errs := ValidationErrors{}
	title := strings.TrimSpace(in.Title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		errs["title"] = "Title is required"
	case n < 10:
		errs["title"] = "Title must be at least 10 characters"
	case n > 255:
		errs["title"] = "Title cannot exceed 255 characters"
	}

	switch n := utf8.RuneCountInString(strings.TrimSpace(in.Description)); {
	case n == 0:
		errs["description"] = "Description is required"
	case n < 20:
		errs["description"] = "Description must be at least 20 characters"
	}

	switch {
	case len(in.Tags) == 0:
		errs["tags"] = "At least one tag is required"
	case len(in.Tags) > 5:
		errs["tags"] = "A question cannot have more than 5 tags"
	default:
		for _, tag := range in.Tags {
			if n := utf8.RuneCountInString(strings.TrimSpace(tag)); n < 2 || n > 50 {
				errs["tags"] = "Tags must be between 2 and 50 characters"
				break
			}
		}
	}
	return errs.orNil()
}

func ValidateAnswer(in AnswerInput) error {
	errs := ValidationErrors{}
	validateAnswerContent(errs, in.Content)
	if in.QuestionID == 0 {
		errs["question_id"] = "Question ID is required"
	}
	return errs.orNil()
}

func validateAnswerContent(errs ValidationErrors, content string) {
	switch n := utf8.RuneCountInString(strings.TrimSpace(content)); {
	case n == 0:
		errs["content"] = "Answer content is required"
	case n < 20:
		errs["content"] = "Answer must be at least 20 characters"
	}
}

func ValidateComment(content string) error {
	errs := ValidationErrors{}
	switch n := utf8.RuneCountInString(strings.TrimSpace(content)); {
	case n == 0:
		errs["content"] = "Comment content is required"
	case n > 1000:
		errs["content"] = "Comment cannot exceed 1000 characters"
	}
	return errs.orNil()
}
