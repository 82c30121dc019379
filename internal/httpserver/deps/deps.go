package deps

import (
	"time"

	"github.com/MrSnakeDoc/nginxlb/internal/index"
	"github.com/MrSnakeDoc/nginxlb/internal/logger"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time   // for testing, defaults to time.Now
	AllowedCIDRS []string           // IPs allowed to access the status endpoints
	TrustProxy   bool               // true if running behind a trusted reverse proxy
	Status       *index.StatusIndex // last lifecycle outcome per host
	Routes       int                // number of configured routes
}
