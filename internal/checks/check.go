// Package checks builds checkers from declarative definitions: run a
// command, probe an HTTP endpoint, look for files, or dial a TCP address.
package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/checkerd/internal/models"
)

type Kind string

const (
	KindCommand Kind = "command"
	KindHTTP    Kind = "http"
	KindFile    Kind = "file"
	KindTCP     Kind = "tcp"
)

// Kinds lists every kind Create understands.
var Kinds = []Kind{KindCommand, KindHTTP, KindFile, KindTCP}

// Check is a checker built from a definition. Run has the same shape as
// registry.Func, so a Check's Run method can be registered directly.
type Check interface {
	Name() string
	Kind() Kind
	Run(ctx context.Context) ([]models.CheckerFailure, error)
}

// Create builds a check of the given kind, decoding params into the kind's
// arguments.
func Create(kind Kind, name string, params map[string]any) (Check, error) {
	switch kind {
	case KindCommand:
		var v CommandCheckArgs
		if err := decode(params, &v); err != nil {
			return nil, fmt.Errorf("command check '%s': %w", name, err)
		}
		v.Name = name
		return NewCommandCheck(v)
	case KindHTTP:
		var v HTTPCheckArgs
		if err := decode(params, &v); err != nil {
			return nil, fmt.Errorf("http check '%s': %w", name, err)
		}
		v.Name = name
		return NewHTTPCheck(v)
	case KindFile:
		var v FileCheckArgs
		if err := decode(params, &v); err != nil {
			return nil, fmt.Errorf("file check '%s': %w", name, err)
		}
		v.Name = name
		return NewFileCheck(v)
	case KindTCP:
		var v TCPCheckArgs
		if err := decode(params, &v); err != nil {
			return nil, fmt.Errorf("tcp check '%s': %w", name, err)
		}
		v.Name = name
		return NewTCPCheck(v)
	default:
		return nil, fmt.Errorf("'%s' is not a valid check kind", kind)
	}
}

// decode is mapstructure.Decode with duration strings ("10s") accepted
// for time.Duration fields.
func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

func timeoutOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
