package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"hfl-auth/internal/config"
	"hfl-auth/internal/util"
)

// Statements the stores execute. Each call builds its own gocql.Query so
// bound values stay goroutine-local; gocql prepares the statement server-side
// on first execution and reuses the prepared id afterwards.
const (
	stmtPutOTP = `INSERT INTO otp_records (phone_bucket, phone, code, attempts, created_at, expires_at)
        VALUES (?, ?, ?, ?, ?, ?)`

	stmtGetOTPByPhone = `SELECT phone, code, attempts, created_at, expires_at
        FROM otp_records WHERE phone_bucket = ? AND phone = ?`

	stmtDeleteOTP = `DELETE FROM otp_records WHERE phone_bucket = ? AND phone = ?`

	stmtGetPlayer = `SELECT player_id, phone, first_name, last_name, team_id, status, created_at
        FROM players WHERE phone_bucket = ? AND phone = ?`

	stmtGetApplication = `SELECT phone, full_name, status, submitted_at
        FROM applications WHERE phone_bucket = ? AND phone = ?`
)

type Client struct {
	Session *gocql.Session
	config  *config.ScyllaConfig
}

func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return &Client{
		Session: session,
		config:  &scyllaConfig,
	}, nil
}

// Query binds values into a fresh per-call query carrying the given context.
func (c *Client) Query(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return c.Session.Query(stmt, values...).WithContext(ctx)
}

func (c *Client) Close() {
	if c.Session != nil {
		c.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (c *Client) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := c.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (c *Client) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < maxRetries {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}

func (c *Client) ExecuteBatch(batch *gocql.Batch) error {
	return c.Session.ExecuteBatch(batch)
}
