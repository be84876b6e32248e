package migration

import (
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	authdomain "github.com/workhive/workhive/internal/auth/domain"
	boarddomain "github.com/workhive/workhive/internal/board/domain"
	"github.com/workhive/workhive/internal/config"
	contactdomain "github.com/workhive/workhive/internal/contact/domain"
	financedomain "github.com/workhive/workhive/internal/finance/domain"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	notificationdomain "github.com/workhive/workhive/internal/notification/domain"
	projectdomain "github.com/workhive/workhive/internal/project/domain"
	"github.com/workhive/workhive/internal/seed"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
	workspacedomain "github.com/workhive/workhive/internal/workspace/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql/sqlite self-host: let gorm build the schema.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.EnsureDefaultAdmin {
			return seed.EnsureDefaultAdmin(conn, cfg.Bootstrap)
		}
		return nil
	}),
)

// AutoMigrate registers every persisted model. Tests reuse it against
// in-memory sqlite.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&identitydomain.User{},
		&identitydomain.VerificationToken{},
		&authdomain.Session{},
		&workspacedomain.Workspace{},
		&workspacedomain.Membership{},
		&projectdomain.Project{},
		&boarddomain.Board{},
		&contactdomain.Contact{},
		&contactdomain.CRMReminder{},
		&financedomain.Company{},
		&financedomain.Income{},
		&financedomain.PartialPayment{},
		&financedomain.Expense{},
		&sharingdomain.Grant{},
		&sharingdomain.Invitation{},
		&sharingdomain.ShareLink{},
		&activitydomain.Activity{},
		&activitydomain.Recipient{},
		&notificationdomain.Preferences{},
		&notificationdomain.EmailDispatch{},
	)
}
