package checks

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spboyer/checkerd/internal/models"
)

const defaultTCPTimeout = 5 * time.Second

type TCPCheckArgs struct {
	Name    string        `mapstructure:"-"`
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// tcpCheck reports a failure when address does not accept a connection.
type tcpCheck struct {
	name    string
	address string
	timeout time.Duration
}

func NewTCPCheck(args TCPCheckArgs) (*tcpCheck, error) {
	if args.Address == "" {
		return nil, fmt.Errorf("tcp check '%s' must have an 'address'", args.Name)
	}
	if _, _, err := net.SplitHostPort(args.Address); err != nil {
		return nil, fmt.Errorf("tcp check '%s' has an invalid 'address': %w", args.Name, err)
	}
	return &tcpCheck{
		name:    args.Name,
		address: args.Address,
		timeout: timeoutOrDefault(args.Timeout, defaultTCPTimeout),
	}, nil
}

func (t *tcpCheck) Name() string { return t.name }
func (t *tcpCheck) Kind() Kind   { return KindTCP }

func (t *tcpCheck) Run(ctx context.Context) ([]models.CheckerFailure, error) {
	d := net.Dialer{Timeout: t.timeout}
	conn, err := d.DialContext(ctx, "tcp", t.address)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []models.CheckerFailure{
			models.NewFailure("cannot connect to " + t.address).
				WithSubtext(err.Error()).
				WithData(map[string]any{"address": t.address}),
		}, nil
	}
	return nil, conn.Close()
}
