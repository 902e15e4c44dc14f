package telegram

import "time"

// Principal is the authenticated identity produced by the gate. The id
// stays a string end to end; mapping to internal keys happens in idhash.
type Principal struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

// GateConfig carries the gate's policy. Passed explicitly at
// construction; there is no package-level secret.
type GateConfig struct {
	BotToken string
	// MaxAge bounds how old an auth_date may be. Zero means the
	// 5 minute default.
	MaxAge time.Duration
	// MaxSkew tolerates auth_date slightly in the future (client clock
	// drift). Zero means the 30 second default.
	MaxSkew time.Duration
}

type Gate struct {
	cfg GateConfig
}

func NewGate(cfg GateConfig) *Gate {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Minute
	}
	if cfg.MaxSkew <= 0 {
		cfg.MaxSkew = 30 * time.Second
	}
	return &Gate{cfg: cfg}
}

// Authenticate runs parse, signature verification and freshness in that
// strict order. The freshness check runs after the signature check so a
// forged auth_date can never influence the outcome of staleness.
func (g *Gate) Authenticate(raw string, now time.Time) (*Principal, error) {
	data, err := ParseInitData(raw)
	if err != nil {
		return nil, err
	}

	if !Verify(data.checkString, data.Hash, g.cfg.BotToken) {
		return nil, ErrInvalidSignature
	}

	age := now.Sub(data.AuthDate)
	if age > g.cfg.MaxAge || -age > g.cfg.MaxSkew {
		return nil, ErrStale
	}

	return &Principal{
		ID:        data.User.ID.String(),
		Username:  data.User.Username,
		FirstName: data.User.FirstName,
		LastName:  data.User.LastName,
	}, nil
}
