package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

type Security struct {
	RateLimitEnabled bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst   int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

var _ SecurityConfig = Security{}

func (s Security) GetEnableRateLimiting() bool {
	return s.RateLimitEnabled
}

func (s Security) GetRateLimitRPS() float64 {
	return s.RateLimitRPS
}

func (s Security) GetRateLimitBurst() int {
	if s.RateLimitBurst < 1 {
		return 1
	}
	return s.RateLimitBurst
}
