package auth

import "fmt"

// Strategy selects how requests establish identity. It is resolved once from
// configuration at startup.
type Strategy int

const (
	StrategyToken Strategy = iota
	StrategySession
	StrategyBasic
)

func (s Strategy) String() string {
	switch s {
	case StrategyToken:
		return "token"
	case StrategySession:
		return "session"
	case StrategyBasic:
		return "basic"
	}
	return "unknown"
}

// ParseStrategy resolves a configured strategy name. An empty value falls
// back to token auth; anything else unknown is a configuration error.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "token", "jwt":
		return StrategyToken, nil
	case "session":
		return StrategySession, nil
	case "basic":
		return StrategyBasic, nil
	}
	return StrategyToken, fmt.Errorf("unknown auth strategy: %q", name)
}
