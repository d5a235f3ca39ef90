package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"stackit-backend/models/qa"
	"stackit-backend/models/users"
)

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput - fields a user may change on their own profile. Nil leaves
// the field alone.
type ProfileInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// PublicProfile - what anyone may see about a user.
type PublicProfile struct {
	User          users.View     `json:"user"`
	QuestionCount int64          `json:"question_count"`
	AnswerCount   int64          `json:"answer_count"`
	Recent        RecentActivity `json:"recent_activity"`
}

type RecentActivity struct {
	Questions []qa.QuestionView `json:"questions"`
	Answers   []qa.AnswerView   `json:"answers"`
}

type UserService struct {
	DB        *gorm.DB
	Mailer    Mailer
	Paginator Paginator
	// HashCost is the bcrypt cost. Zero means bcrypt.DefaultCost.
	HashCost int
}

func (s *UserService) hash(password string) (string, error) {
	cost := s.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Annotate(err, "hashing password")
	}
	return string(h), nil
}

// taken reports an AlreadyExists error when username or email belongs to
// someone other than exceptID.
func (s *UserService) taken(ctx context.Context, field, value string, exceptID uint) error {
	var n int64
	q := s.DB.WithContext(ctx).Model(&users.User{}).Where(field+" = ?", value)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return errors.Annotatef(err, "checking %s", field)
	}
	if n > 0 {
		return errors.AlreadyExistsf("%s %q", field, value)
	}
	return nil
}

// Register creates a local account and sends the welcome mail.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*users.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := ValidateRegistration(in); err != nil {
		return nil, err
	}
	if err := s.taken(ctx, "username", in.Username, 0); err != nil {
		return nil, err
	}
	if err := s.taken(ctx, "email", in.Email, 0); err != nil {
		return nil, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &users.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         users.RoleUser,
		Provider:     users.ProviderLocal,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, errors.Annotatef(err, "creating user %q", in.Username)
	}
	logger.Infof("registered user %q (%d)", u.Username, u.ID)
	s.welcome(ctx, u)
	return u, nil
}

func (s *UserService) welcome(ctx context.Context, u *users.User) {
	if s.Mailer == nil {
		return
	}
	if err := s.Mailer.Send(ctx, welcomeMail(u.Username, u.Email)); err != nil {
		logger.Warningf("welcome mail for %q: %v", u.Username, err)
	}
}

// Authenticate checks a username (or email) and password pair.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*users.User, error) {
	if err := ValidateLogin(login, password); err != nil {
		return nil, err
	}
	var u users.User
	err := s.DB.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Unauthorizedf("invalid username or password")
	} else if err != nil {
		return nil, errors.Annotate(err, "loading user")
	}
	if u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errors.Unauthorizedf("invalid username or password")
	}
	if u.Banned {
		return nil, errors.Forbiddenf("user %q is banned", u.Username)
	}
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*users.User, error) {
	var u users.User
	if err := s.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, findErr(err, "user", id)
	}
	return &u, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	var u users.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, findErr(err, "user", username)
	}
	return &u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*users.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	errs := ValidationErrors{}
	updates := map[string]interface{}{}
	if in.Username != nil && *in.Username != u.Username {
		name := strings.TrimSpace(*in.Username)
		validateUsername(errs, name)
		updates["username"] = name
	}
	if in.Email != nil && *in.Email != u.Email {
		email := strings.TrimSpace(*in.Email)
		validateEmail(errs, email)
		updates["email"] = email
	}
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return u, nil
	}
	for field, value := range updates {
		if err := s.taken(ctx, field, value.(string), u.ID); err != nil {
			return nil, err
		}
	}
	if err := s.DB.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, errors.Annotatef(err, "updating user %d", id)
	}
	return s.Get(ctx, id)
}

// ChangePassword requires the current password. Google accounts without a
// password may set one with an empty current password.
func (s *UserService) ChangePassword(ctx context.Context, id uint, current, next string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.PasswordHash != "" &&
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return ValidationErrors{"current_password": "Current password is incorrect"}
	}
	errs := ValidationErrors{}
	validatePassword(errs, "new_password", next)
	if err := errs.orNil(); err != nil {
		return err
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("password_hash", hash).Error; err != nil {
		return errors.Annotatef(err, "updating password of user %d", id)
	}
	logger.Infof("user %d changed password", id)
	return nil
}

// List pages through users, newest first, optionally matching search against
// username or email.
func (s *UserService) List(ctx context.Context, search string, pg Page) ([]users.User, int64, error) {
	pg = s.Paginator.Normalize(pg)
	q := s.DB.WithContext(ctx).Model(&users.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Annotate(err, "counting users")
	}
	list := []users.User{}
	if err := q.Order("created_at DESC, id DESC").Offset(pg.Offset()).Limit(pg.PerPage).Find(&list).Error; err != nil {
		return nil, 0, errors.Annotate(err, "listing users")
	}
	return list, total, nil
}

// SetBanned bans or unbans userID on behalf of admin.
func (s *UserService) SetBanned(ctx context.Context, admin *users.User, userID uint, banned bool) (*users.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.ID == admin.ID {
		return nil, errors.BadRequestf("you cannot ban yourself")
	}
	if u.IsAdmin() {
		return nil, errors.BadRequestf("cannot ban an admin user")
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("banned", banned).Error; err != nil {
		return nil, errors.Annotatef(err, "updating ban of user %d", userID)
	}
	u.Banned = banned
	logger.Infof("admin %q set banned=%v on user %q", admin.Username, banned, u.Username)
	return u, nil
}

// FindOrCreateGoogleUser links a Google login to an account by email, creating
// one with a free username derived from the address when needed.
func (s *UserService) FindOrCreateGoogleUser(ctx context.Context, email, name string) (*users.User, error) {
	if email == "" {
		return nil, errors.NotValidf("empty google email")
	}
	var u users.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err == nil {
		if u.Banned {
			return nil, errors.Forbiddenf("user %q is banned", u.Username)
		}
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Annotate(err, "loading google user")
	}

	username, err := s.freeUsername(ctx, googleUsername(email, name))
	if err != nil {
		return nil, err
	}
	u = users.User{
		Username: username,
		Email:    email,
		Role:     users.RoleUser,
		Provider: users.ProviderGoogle,
	}
	if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, errors.Annotatef(err, "creating google user %q", email)
	}
	logger.Infof("created google user %q (%d)", u.Username, u.ID)
	s.welcome(ctx, &u)
	return &u, nil
}

func googleUsername(email, name string) string {
	base := name
	if base == "" {
		base = email
		if at := strings.IndexByte(base, '@'); at > 0 {
			base = base[:at]
		}
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '-':
			b.WriteByte('_')
		}
	}
	out := b.String()
	for len(out) < 3 {
		out += "_"
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}

func (s *UserService) freeUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; i < 1000; i++ {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&users.User{}).Where("username = ?", candidate).Count(&n).Error; err != nil {
			return "", errors.Annotate(err, "checking username")
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", errors.AlreadyExistsf("username %q", base)
}

// Profile returns username's public profile with their five latest
// questions and answers.
func (s *UserService) Profile(ctx context.Context, username string) (*PublicProfile, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	p := &PublicProfile{User: u.View(false)}
	if err := db.Model(&qa.Question{}).Where("user_id = ?", u.ID).Count(&p.QuestionCount).Error; err != nil {
		return nil, errors.Annotate(err, "counting questions")
	}
	if err := db.Model(&qa.Answer{}).Where("user_id = ?", u.ID).Count(&p.AnswerCount).Error; err != nil {
		return nil, errors.Annotate(err, "counting answers")
	}

	var questions []qa.Question
	err = db.Preload("Author").Preload("Tags").
		Where("user_id = ?", u.ID).Order("created_at DESC, id DESC").Limit(5).
		Find(&questions).Error
	if err != nil {
		return nil, errors.Annotate(err, "loading recent questions")
	}
	var answers []qa.Answer
	err = db.Preload("Author").Preload("Votes").
		Where("user_id = ?", u.ID).Order("created_at DESC, id DESC").Limit(5).
		Find(&answers).Error
	if err != nil {
		return nil, errors.Annotate(err, "loading recent answers")
	}

	p.Recent.Questions = make([]qa.QuestionView, 0, len(questions))
	for i := range questions {
		p.Recent.Questions = append(p.Recent.Questions, questions[i].View(false))
	}
	p.Recent.Answers = make([]qa.AnswerView, 0, len(answers))
	for i := range answers {
		p.Recent.Answers = append(p.Recent.Answers, answers[i].View(false))
	}
	return p, nil
}
