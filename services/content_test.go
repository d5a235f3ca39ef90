package services_test

import (
	"strings"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"stackit-backend/services"
)

type ContentSuite struct{}

var _ = gc.Suite(&ContentSuite{})

func (*ContentSuite) TestExtractMentions(c *gc.C) {
	got := services.ExtractMentions("thanks @bob and @alice_2, also @bob again. @al is too short, mail me@example.com")
	c.Assert(got, jc.DeepEquals, []string{"alice_2", "bob", "example"})
	c.Assert(services.ExtractMentions("nobody here"), gc.HasLen, 0)
}

func (*ContentSuite) TestSanitizeHTML(c *gc.C) {
	out := services.SanitizeHTML(`<p onclick="x()">hi <b>there</b></p><script>alert(1)</script><pre class="lang-go">x := 1</pre>`)
	c.Check(strings.Contains(out, "<script>"), jc.IsFalse)
	c.Check(strings.Contains(out, "onclick"), jc.IsFalse)
	c.Check(strings.Contains(out, "<b>there</b>"), jc.IsTrue)
	c.Check(strings.Contains(out, `<pre class="lang-go">`), jc.IsTrue)
}

func (*ContentSuite) TestPaginator(c *gc.C) {
	p := services.Paginator{DefaultPageSize: 10, MaxPageSize: 100}
	c.Check(p.Normalize(services.Page{}), gc.Equals, services.Page{Page: 1, PerPage: 10})
	c.Check(p.Normalize(services.Page{Page: 3, PerPage: 500}), gc.Equals, services.Page{Page: 3, PerPage: 100})
	c.Check(services.Paginator{}.Normalize(services.Page{Page: -1}), gc.Equals, services.Page{Page: 1, PerPage: 10})

	pg := services.Page{Page: 3, PerPage: 10}
	c.Check(pg.Offset(), gc.Equals, 20)
	c.Check(pg.Pages(0), gc.Equals, int64(0))
	c.Check(pg.Pages(21), gc.Equals, int64(3))
}

func (*ContentSuite) TestValidateRegistration(c *gc.C) {
	err := services.ValidateRegistration(services.RegisterInput{Username: "a!", Email: "nope", Password: "short"})
	c.Assert(err, gc.FitsTypeOf, services.ValidationErrors{})
	c.Assert(err.(services.ValidationErrors), jc.DeepEquals, services.ValidationErrors{
		"username": "Username must be at least 3 characters",
		"email":    "Invalid email format",
		"password": "Password must be at least 8 characters",
	})

	err = services.ValidateRegistration(services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "alllowercase1"})
	c.Assert(err, gc.ErrorMatches, "invalid input: password: Password must contain at least one uppercase letter")

	err = services.ValidateRegistration(services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "Secret123"})
	c.Assert(err, jc.ErrorIsNil)
}

func (*ContentSuite) TestValidateQuestion(c *gc.C) {
	good := services.QuestionInput{
		Title:       "How do I close a channel?",
		Description: "I keep getting a panic when closing twice.",
		Tags:        []string{"go"},
	}
	c.Assert(services.ValidateQuestion(good), jc.ErrorIsNil)

	bad := services.QuestionInput{Title: "short", Description: "tiny", Tags: []string{"a", "b", "c", "d", "e", "f"}}
	err := services.ValidateQuestion(bad)
	c.Assert(err, gc.FitsTypeOf, services.ValidationErrors{})
	c.Assert(err.(services.ValidationErrors), gc.HasLen, 3)
	c.Check(err.(services.ValidationErrors)["tags"], gc.Equals, "A question cannot have more than 5 tags")

	bad = good
	bad.Tags = []string{"x"}
	err = services.ValidateQuestion(bad)
	c.Check(err, gc.ErrorMatches, "invalid input: tags: Tags must be between 2 and 50 characters")
}

func (*ContentSuite) TestValidateComment(c *gc.C) {
	c.Check(services.ValidateComment("  "), gc.ErrorMatches, "invalid input: content: Comment content is required")
	c.Check(services.ValidateComment(strings.Repeat("x", 1001)), gc.ErrorMatches, ".*cannot exceed 1000 characters")
	c.Check(services.ValidateComment("fine"), jc.ErrorIsNil)
}
