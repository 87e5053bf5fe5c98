package commands

import (
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/jbridge/internal/cli/config"
	"github.com/leapstack-labs/jbridge/pkg/jdbc"
	"github.com/leapstack-labs/jbridge/pkg/jdbc/sqldriver"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	DriverClass string
	URL         string
	User        string
	Password    string
	Format      string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}
	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run SQL against a JDBC URL",
		Long: `Execute a single SQL statement, or start an interactive REPL when no
statement is given.

The driver class and URL come from flags or the configuration file. The
matching driver jar is resolved automatically when its kind appears in
the configured drivers list; otherwise supply it via JBRIDGE_CLASSPATH.`,
		Example: `  # One-shot query
  jbridge query --driver org.postgresql.Driver \
      --url jdbc:postgresql://localhost/app "SELECT 1"

  # Interactive REPL
  jbridge query --driver org.sqlite.JDBC --url jdbc:sqlite:app.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetCurrentConfig()
			db, err := openQueryDB(cmd, cfg, opts)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			format := outputFormat(cfg, opts.Format)
			if len(args) == 1 {
				return executeAndRenderQuery(cmd, db, args[0], format)
			}
			return runQueryREPL(cmd, db, format)
		},
	}

	cmd.Flags().StringVar(&opts.DriverClass, "driver", "", "JDBC driver class")
	cmd.Flags().StringVar(&opts.URL, "url", "", "JDBC connection URL")
	cmd.Flags().StringVar(&opts.User, "user", "", "Database user")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Database password")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, markdown")
	return cmd
}

// openQueryDB builds a database/sql handle over the bridge from flags and
// configuration. Flags win over config file values.
func openQueryDB(cmd *cobra.Command, cfg *config.Config, opts *QueryOptions) (*sql.DB, error) {
	driverClass := opts.DriverClass
	if driverClass == "" {
		driverClass = cfg.DriverClass
	}
	url := opts.URL
	if url == "" {
		url = cfg.URL
	}
	if driverClass == "" || url == "" {
		return nil, fmt.Errorf("both a driver class and a JDBC URL are required (--driver/--url or config)")
	}

	user := opts.User
	if user == "" {
		user = cfg.User
	}
	password := opts.Password
	if password == "" {
		password = cfg.Password
	}

	logger := commandLogger(cmd)
	connOpts := jdbc.Options{
		DriverClass:    driverClass,
		URL:            url,
		DriverKinds:    cfg.Drivers,
		ExtraClasspath: cfg.Classpath,
		JavaPath:       cfg.JavaPath,
		JVMArgs:        cfg.JVMArgs,
		Resolver:       newResolver(cfg, logger),
		Logger:         logger,
	}
	if user != "" {
		connOpts.Credentials = []string{user, password}
	}

	db := sql.OpenDB(sqldriver.NewConnector(connOpts))
	// One native connection is enough for an interactive session and keeps
	// the runtime from opening a connection per statement.
	db.SetMaxOpenConns(1)
	return db, nil
}
