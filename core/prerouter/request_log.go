package prerouter

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/devilelephant/blacklist/core"
)

const (
	logMessage      = "http_request"
	maxURILength    = 512
	maxHeaderLength = 256
)

// cutStr limits string length by adding ellipsis if needed
func cutStr(str string, max int) string {
	if len(str) > max {
		return str[:max] + "..."
	}
	return str
}

var logType = slog.String("type", "request")

// RequestLog logs one line per request. It reads status, size and
// duration from the core.ResponseRecorder installed by Recorder.
type RequestLog struct {
	app *core.App
}

func NewRequestLog(app *core.App) *RequestLog {
	return &RequestLog{
		app: app,
	}
}

func (rl *RequestLog) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !rl.app.Config().Log.Requests {
			next.ServeHTTP(w, req)
			return
		}

		rec, ok := w.(*core.ResponseRecorder)
		if !ok {
			rl.app.Logger().Error("request log middleware: expected core.ResponseRecorder but got different type",
				"got", fmt.Sprintf("%T", w),
			)
			next.ServeHTTP(w, req)
			return
		}

		next.ServeHTTP(rec, req)

		attrs := make([]any, 0, 10)
		attrs = append(attrs, logType)
		attrs = append(attrs, slog.String("method", req.Method))
		attrs = append(attrs, slog.String("uri", cutStr(req.URL.RequestURI(), maxURILength)))
		attrs = append(attrs, slog.Int("status", rec.Status))
		attrs = append(attrs, slog.Int64("bytes", rec.BytesWritten))
		attrs = append(attrs, slog.String("duration", rec.Duration().String()))
		attrs = append(attrs, slog.String("remote_ip", ClientIP(req, rl.app.Config().Server.ClientIpProxyHeader)))
		attrs = append(attrs, slog.String("user_agent", cutStr(req.UserAgent(), maxHeaderLength)))
		attrs = append(attrs, slog.String("proto", req.Proto))

		rl.app.Logger().Info(logMessage, attrs...)
	})
}
