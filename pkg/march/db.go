package march

import (
	"database/sql"
	"net/url"
	"strings"

	"github.com/marchdb/march/internal/merr"
)

// DetectDialect infers the dialect from a connection string.
func DetectDialect(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(databaseURL, "sqlite://"),
		strings.HasSuffix(databaseURL, ".db"),
		strings.HasSuffix(databaseURL, ".sqlite"),
		databaseURL == ":memory:":
		return "sqlite", nil
	default:
		return "", merr.Newf(merr.ErrConnection, "cannot detect a dialect from %q", Redact(databaseURL)).
			WithHelp("use a postgres:// or sqlite:// URL, or set the dialect explicitly")
	}
}

func openDatabase(databaseURL, dialectName string) (*sql.DB, error) {
	switch dialectName {
	case "postgres":
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, merr.Wrap(err, merr.ErrConnection, "cannot open the postgres connection").
				With("url", Redact(databaseURL))
		}
		return db, nil
	case "sqlite":
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, merr.Wrap(err, merr.ErrConnection, "cannot open the sqlite database").
				With("path", dsn)
		}
		return db, nil
	default:
		return nil, merr.Newf(merr.ErrConnection, "unsupported dialect %q", dialectName)
	}
}

// Redact strips credentials from a connection string for error output.
func Redact(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.User == nil {
		return databaseURL
	}
	u.User = url.User(u.User.Username())
	return u.String()
}
