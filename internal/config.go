package internal

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0" validate:"required"`
	Port     int    `env:"PORT,default=3001" validate:"min=1,max=65535"`
	LogLevel string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`

	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,default=*" validate:"required"`
	CommandBufferSize    int           `env:"COMMAND_BUFFER_SIZE,default=256" validate:"min=1"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"min=1"`
	MaxMessageBytes      int64         `env:"MAX_MESSAGE_BYTES,default=1048576" validate:"min=512"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=20s" validate:"min=1s"`

	ExecutionTimeout        time.Duration `env:"EXECUTION_TIMEOUT,default=5s" validate:"min=100ms"`
	MaxOutputBytes          int           `env:"MAX_OUTPUT_BYTES,default=65536" validate:"min=1"`
	MaxConcurrentExecutions int           `env:"MAX_CONCURRENT_EXECUTIONS,default=4" validate:"min=1"`
	AdmissionTimeout        time.Duration `env:"ADMISSION_TIMEOUT,default=2s" validate:"min=0"`
	SandboxWorkDir          string        `env:"SANDBOX_WORK_DIR"`
	NodeBin                 string        `env:"NODE_BIN,default=node" validate:"required"`
	PythonBin               string        `env:"PYTHON_BIN,default=python3" validate:"required"`

	RoomIdleTTL     time.Duration `env:"ROOM_IDLE_TTL,default=1h" validate:"min=0"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL,default=1m" validate:"min=1s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"min=0"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=5s" validate:"min=100ms"`

	CommentModeration bool   `env:"COMMENT_MODERATION,default=false"`
	CensorCharacter   string `env:"CENSOR_CHARACTER,default=*"`
}

// Validate checks ranges and fills SandboxWorkDir with the OS temp dir when unset.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := CharacterRune(c.CensorCharacter); err != nil {
		return err
	}
	if c.SandboxWorkDir == "" {
		c.SandboxWorkDir = os.TempDir()
	}
	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins splits ALLOWED_ORIGINS on ';'.
func (c *Config) Origins() []string {
	parts := lo.Map(strings.Split(c.AllowedOrigins, ";"), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Compact(parts)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
