package logbus

import (
	"fmt"
	"sync"
)

// AccountLogger prefixes every line with the account's index and, once a
// proxy egress IP has been resolved, that IP. One instance per session.
type AccountLogger struct {
	bus   *Bus
	index int

	mu      sync.Mutex
	proxyIP string
}

func NewAccountLogger(bus *Bus, index int) *AccountLogger {
	return &AccountLogger{bus: bus, index: index}
}

func (l *AccountLogger) SetProxyIP(ip string) {
	l.mu.Lock()
	l.proxyIP = ip
	l.mu.Unlock()
}

func (l *AccountLogger) ProxyIP() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.proxyIP
}

func (l *AccountLogger) prefix() string {
	l.mu.Lock()
	ip := l.proxyIP
	l.mu.Unlock()
	if ip != "" {
		return fmt.Sprintf("[Account %d][%s]", l.index+1, ip)
	}
	return fmt.Sprintf("[Account %d]", l.index+1)
}

func (l *AccountLogger) log(level, format string, args ...any) {
	if l == nil || l.bus == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.bus.Log(level, l.prefix()+" "+msg, map[string]any{"account": l.index + 1})
}

func (l *AccountLogger) Info(format string, args ...any)    { l.log("info", format, args...) }
func (l *AccountLogger) Success(format string, args ...any) { l.log("success", format, args...) }
func (l *AccountLogger) Warn(format string, args ...any)    { l.log("warn", format, args...) }
func (l *AccountLogger) Error(format string, args ...any)   { l.log("error", format, args...) }
