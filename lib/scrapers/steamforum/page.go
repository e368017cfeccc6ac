package steamforum

import (
	"bytes"
	"fmt"
	"net/url"
	"steamtrades-client/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// markup shared by the steamtrades and steamgifts layouts
const (
	SelectorForm         = "form"
	SelectorNavButton    = "a.nav__button"
	SelectorNotification = "div.notification"
	SelectorWarning      = "div.notification--warning"
)

// Page is a parsed response body. It is read-only and safe to share.
type Page struct {
	Doc *goquery.Document
}

func ParsePage(body []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	return Page{Doc: doc}, nil
}

func (p Page) Has(selector string) bool {
	_, ok := htmlutil.First(p.Doc.Selection, selector)
	return ok
}

// Contains reports whether the first element matching selector contains substr.
func (p Page) Contains(selector, substr string) bool {
	return htmlutil.FirstContains(p.Doc.Selection, selector, substr)
}

// Form returns the first form on the page.
func (p Page) Form() (*goquery.Selection, bool) {
	return htmlutil.First(p.Doc.Selection, SelectorForm)
}

// FormValues returns the fields of the first form, ok is false without a form.
func (p Page) FormValues() (url.Values, bool) {
	form, ok := p.Form()
	if !ok {
		return nil, false
	}
	return htmlutil.FormValues(form), true
}

// Predicate is a yes/no question about a page.
type Predicate func(Page) bool

func Present(selector string) Predicate {
	return func(p Page) bool { return p.Has(selector) }
}

func Absent(selector string) Predicate {
	return func(p Page) bool { return !p.Has(selector) }
}

func TextContains(selector, substr string) Predicate {
	return func(p Page) bool { return p.Contains(selector, substr) }
}

func All(preds ...Predicate) Predicate {
	return func(p Page) bool {
		for _, pred := range preds {
			if !pred(p) {
				return false
			}
		}
		return true
	}
}

func Always(Page) bool { return true }

// Rule maps a predicate to an outcome. A nil Err accepts the page.
type Rule struct {
	Name  string
	Match Predicate
	Err   error
}

// Table is an ordered decision table, the first matching rule wins.
type Table []Rule

// Decide evaluates t top to bottom. matched is false when no rule applies.
func (t Table) Decide(p Page) (rule string, matched bool, err error) {
	for _, r := range t {
		if r.Match(p) {
			return r.Name, true, r.Err
		}
	}
	return "", false, nil
}

// SuspendedBadge is the nav button shown to suspended accounts.
var SuspendedBadge = TextContains(SelectorNavButton, "Suspensions")

func suspendedError() error {
	return NewError(KindUserSuspended, "unable to login, user is suspended")
}

func privateProfileError(site string) error {
	return NewError(KindPrivateProfile, fmt.Sprintf("your profile must be public to use %s", site))
}

func loginError(site string) error {
	return NewError(KindLogin, fmt.Sprintf("unable to log-in on %s", site))
}

// BlockedLoginTable classifies a login page that shows a notice instead of
// the login form.
func BlockedLoginTable(site string) Table {
	return Table{
		{Name: "suspended", Match: SuspendedBadge, Err: suspendedError()},
		{
			Name:  "too-fast",
			Match: TextContains(SelectorWarning, "Please wait"),
			Err:   NewError(KindTooFast, fmt.Sprintf("wait %s before trying again", TooFastWait)),
		},
		{
			Name:  "private-profile",
			Match: TextContains(SelectorWarning, "public Steam profile"),
			Err:   privateProfileError(site),
		},
		{Name: "unknown", Match: Always, Err: loginError(site)},
	}
}

// AuthenticatedTable classifies the page returned by the identity provider.
// The suspension badge is checked again here because the site shows it either
// before or after the redirect, never reliably in one place.
func AuthenticatedTable(site, avatarSelector string) Table {
	avatar := Present(avatarSelector)
	return Table{
		{Name: "suspended", Match: All(avatar, SuspendedBadge), Err: suspendedError()},
		{Name: "authenticated", Match: avatar},
		{
			Name:  "user-level",
			Match: TextContains(SelectorNotification, "Steam level"),
			Err:   NewError(KindUserLevel, "steam level must be greater than 1"),
		},
		{
			Name:  "private-profile",
			Match: TextContains(SelectorWarning, "public Steam profile"),
			Err:   privateProfileError(site),
		},
		{Name: "unknown", Match: Always, Err: loginError(site)},
	}
}
