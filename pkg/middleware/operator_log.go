package middleware

import (
	"VoiceBoard/pkg/logger"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OperationLog is one audited mutating request.
type OperationLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Action          string    `gorm:"size:16;not null" json:"action"`
	Target          string    `gorm:"size:255;not null;index" json:"target"`
	Route           string    `gorm:"size:255" json:"route"`
	StatusCode      int       `json:"status_code"`
	IPAddress       string    `gorm:"size:64" json:"ip_address"`
	UserAgent       string    `gorm:"type:text" json:"user_agent"`
	Referer         string    `gorm:"type:text" json:"referer"`
	Device          string    `gorm:"size:64" json:"device"`
	Browser         string    `gorm:"size:128" json:"browser"`
	OperatingSystem string    `gorm:"size:128" json:"operating_system"`
	Location        string    `gorm:"size:128" json:"location"`
	LatencyMs       int64     `json:"latency_ms"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// GeoLocator resolves an IP to a city name.
type GeoLocator interface {
	City(ip net.IP) (*geoip2.City, error)
}

// OpenGeoIP opens a MaxMind city database; an empty path disables lookups.
func OpenGeoIP(path string) (*geoip2.Reader, error) {
	if path == "" {
		return nil, nil
	}
	return geoip2.Open(path)
}

// OperationLogMiddleware stores an OperationLog for every non-GET request
// after it has been handled. Failures to write the log are only logged.
func OperationLogMiddleware(db *gorm.DB, geo GeoLocator) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		entry := NewOperationLog(c, geo)
		entry.LatencyMs = time.Since(start).Milliseconds()
		if err := db.WithContext(c.Request.Context()).Create(entry).Error; err != nil {
			logger.Warn("record operation log failed", zap.Error(err), zap.String("target", entry.Target))
		}
	}
}

// NewOperationLog extracts the audit fields from a handled request.
func NewOperationLog(c *gin.Context, geo GeoLocator) *OperationLog {
	ua := user_agent.New(c.GetHeader("User-Agent"))
	browser, version := ua.Browser()
	device := "desktop"
	if ua.Bot() {
		device = "bot"
	} else if ua.Mobile() {
		device = "mobile"
	}

	ip := c.ClientIP()
	return &OperationLog{
		Action:          c.Request.Method,
		Target:          c.Request.URL.Path,
		Route:           c.FullPath(),
		StatusCode:      c.Writer.Status(),
		IPAddress:       ip,
		UserAgent:       c.GetHeader("User-Agent"),
		Referer:         c.GetHeader("Referer"),
		Device:          device,
		Browser:         joinNonEmpty(browser, version),
		OperatingSystem: ua.OS(),
		Location:        geoLocation(geo, ip),
	}
}

func geoLocation(geo GeoLocator, address string) string {
	if geo == nil {
		return ""
	}
	ip := net.ParseIP(address)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() {
		return ""
	}
	record, err := geo.City(ip)
	if err != nil {
		return ""
	}
	return record.City.Names["en"]
}

func joinNonEmpty(a, b string) string {
	if b == "" {
		return a
	}
	if a == "" {
		return b
	}
	return a + " " + b
}

// ListOperationLogs returns the newest entries first.
func ListOperationLogs(db *gorm.DB, limit int) ([]OperationLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs := make([]OperationLog, 0, limit)
	err := db.Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
