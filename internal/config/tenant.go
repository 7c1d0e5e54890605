package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/relaymail/relaymail/internal/domain"
)

// Tenant is one configured relay pipeline: a database to listen on, an
// identity-provider application to authenticate with, and a sender/recipient
// pair. Fully formed at load time and immutable afterwards.
type Tenant struct {
	Label    string          `validate:"required"`
	Channel  string          `validate:"required"`
	Category domain.Category `validate:"required"`

	// ConnString is either the DATABASE_URL as given or a DSN built from
	// the discrete PG* fields; the two forms are mutually exclusive.
	ConnString string `validate:"required"`

	TenantID     string `validate:"required"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	FromEmail    string `validate:"required,email"`
	ToEmail      string `validate:"required,email"`
}

// maxTenants bounds the numbered-suffix scan; tenants beyond the first are
// optional so the scan stops at the first entirely absent slot.
const maxTenants = 16

// channelByPosition fixes the subscription channel per tenant role so tenants
// sharing database infrastructure never cross-deliver.
var channelByPosition = []string{
	"new_record_channel",
	"new_quote_request_channel",
	"new_contact_submission_channel",
}

var categoryByPosition = []domain.Category{
	domain.CategoryInquiry,
	domain.CategoryQuoteRequest,
	domain.CategoryContactSubmission,
}

// LookupFunc abstracts os.LookupEnv for tests.
type LookupFunc func(key string) (string, bool)

var validate = validator.New()

// LoadTenants discovers configured tenants from the environment. Tenant 1 is
// mandatory: if incomplete, a *domain.ConfigError listing the missing
// variable names is returned. Tenants N>=2 use "_N"-suffixed variables and
// are skipped with a warning when incomplete.
func LoadTenants(lookup LookupFunc, log *slog.Logger) ([]Tenant, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var tenants []Tenant
	for n := 1; n <= maxTenants; n++ {
		tenant, missing, present, ambiguous := loadTenant(lookup, n)
		if ambiguous {
			log.Warn("both DATABASE_URL and discrete PG variables set, using DATABASE_URL",
				"tenant", tenant.Label,
			)
		}
		if n == 1 {
			if len(missing) > 0 {
				return nil, &domain.ConfigError{Tenant: tenant.Label, Missing: missing}
			}
			if err := validate.Struct(tenant); err != nil {
				return nil, fmt.Errorf("tenant %s: invalid configuration: %w", tenant.Label, err)
			}
			tenants = append(tenants, tenant)
			continue
		}
		if !present {
			break
		}
		if len(missing) > 0 {
			log.Warn("skipping partially configured tenant",
				"tenant", tenant.Label,
				"missing", strings.Join(missing, ", "),
			)
			continue
		}
		if err := validate.Struct(tenant); err != nil {
			log.Warn("skipping tenant with invalid configuration",
				"tenant", tenant.Label,
				"error", err.Error(),
			)
			continue
		}
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

// loadTenant gathers tenant n's variables. present reports whether any of
// them were set at all, so the caller can distinguish "absent" from
// "partial". ambiguous reports that both database locator forms were set;
// they are mutually exclusive and the URL wins.
func loadTenant(lookup LookupFunc, n int) (t Tenant, missing []string, present, ambiguous bool) {
	get := func(key string) (string, bool) {
		return lookup(suffixed(key, n))
	}

	t = Tenant{
		Label:    fmt.Sprintf("Tenant-%d", n),
		Channel:  channelFor(n),
		Category: categoryFor(n),
	}

	url, urlSet := get("DATABASE_URL")
	host, hostSet := get("PGHOST")
	dbname, dbSet := get("PGDATABASE")
	user, userSet := get("PGUSER")
	pass, passSet := get("PGPASSWORD")
	present = urlSet || hostSet || dbSet || userSet || passSet

	switch {
	case urlSet:
		t.ConnString = url
		ambiguous = hostSet || dbSet || userSet || passSet
	case hostSet || dbSet || userSet || passSet:
		for _, v := range []struct {
			set bool
			key string
		}{
			{hostSet, "PGHOST"}, {dbSet, "PGDATABASE"}, {userSet, "PGUSER"}, {passSet, "PGPASSWORD"},
		} {
			if !v.set {
				missing = append(missing, suffixed(v.key, n))
			}
		}
		if len(missing) == 0 {
			t.ConnString = fmt.Sprintf("host=%s dbname=%s user=%s password=%s", host, dbname, user, pass)
		}
	default:
		missing = append(missing, suffixed("DATABASE_URL", n))
	}

	for _, v := range []struct {
		dst *string
		key string
	}{
		{&t.TenantID, "TENANT_ID"},
		{&t.ClientID, "CLIENT_ID"},
		{&t.ClientSecret, "CLIENT_SECRET"},
		{&t.FromEmail, "FROM_EMAIL"},
		{&t.ToEmail, "TO_EMAIL"},
	} {
		val, ok := get(v.key)
		present = present || ok
		if !ok || val == "" {
			missing = append(missing, suffixed(v.key, n))
			continue
		}
		*v.dst = val
	}

	return t, missing, present, ambiguous
}

func suffixed(key string, n int) string {
	if n == 1 {
		return key
	}
	return fmt.Sprintf("%s_%d", key, n)
}

func channelFor(n int) string {
	if n <= len(channelByPosition) {
		return channelByPosition[n-1]
	}
	return fmt.Sprintf("new_record_channel_%d", n)
}

func categoryFor(n int) domain.Category {
	if n <= len(categoryByPosition) {
		return categoryByPosition[n-1]
	}
	return domain.CategoryInquiry
}
