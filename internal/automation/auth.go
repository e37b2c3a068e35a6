package automation

import (
	"context"
	"fmt"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// Credentials locate and unlock the consolidator account.
type Credentials struct {
	URL      string
	Email    string
	Password string
}

// Authenticator logs into the portal.
type Authenticator struct {
	catalog  *portal.Catalog
	creds    Credentials
	timeouts Timeouts
	log      *logger.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(catalog *portal.Catalog, creds Credentials, timeouts Timeouts, log *logger.Logger) *Authenticator {
	return &Authenticator{catalog: catalog, creds: creds, timeouts: timeouts, log: log}
}

// Login signs in and succeeds only once the search form is visible.
// It is never retried: repeated failed logins can lock the account.
func (a *Authenticator) Login(ctx context.Context, page portal.Page) error {
	fail := func(err error) error {
		return domain.NewStepError(StepLogin, domain.ErrAuthentication, err)
	}

	if err := page.Navigate(ctx, a.creds.URL); err != nil {
		return fail(fmt.Errorf("open portal: %w", err))
	}
	if err := fill(page, a.catalog.Locator(portal.LoginEmail), a.creds.Email); err != nil {
		return fail(err)
	}
	if err := fill(page, a.catalog.Locator(portal.LoginPassword), a.creds.Password); err != nil {
		return fail(err)
	}
	if err := click(page, a.catalog.Locator(portal.LoginSubmit)); err != nil {
		return fail(err)
	}
	if err := page.WaitVisible(ctx, a.catalog.Landmark(portal.LandmarkSearchForm), a.timeouts.Login); err != nil {
		return fail(fmt.Errorf("search form not shown after login: %w", err))
	}

	a.log.Debug().Msg("Logged in")
	return nil
}
