package api

import (
	"encoding/json"
	"io"

	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"
)

// echoLogger adapts the process-wide logrus logger to echo's Logger
// interface so framework messages land in the same stream as ours.
type echoLogger struct {
	*logrus.Logger
}

var serviceLogger = &echoLogger{Logger: logrus.StandardLogger()}

func toEchoLevel(level logrus.Level) log.Lvl {
	switch level {
	case logrus.DebugLevel:
		return log.DEBUG
	case logrus.InfoLevel:
		return log.INFO
	case logrus.WarnLevel:
		return log.WARN
	case logrus.ErrorLevel:
		return log.ERROR
	}
	return log.OFF
}

func (l *echoLogger) Output() io.Writer {
	return l.Out
}

// SetOutput, SetLevel, SetHeader and SetPrefix are no-ops: the global
// logrus configuration is owned by main, not by echo.
func (l *echoLogger) SetOutput(w io.Writer) {}

func (l *echoLogger) Level() log.Lvl {
	return toEchoLevel(l.Logger.Level)
}

func (l *echoLogger) SetLevel(v log.Lvl) {}

func (l *echoLogger) SetHeader(h string) {}

func (l *echoLogger) Prefix() string {
	return ""
}

func (l *echoLogger) SetPrefix(p string) {}

func (l *echoLogger) Printj(j log.JSON) {
	l.Logger.Println(toJSONString(j))
}

func (l *echoLogger) Debugj(j log.JSON) {
	l.Logger.Debugln(toJSONString(j))
}

func (l *echoLogger) Infoj(j log.JSON) {
	l.Logger.Infoln(toJSONString(j))
}

func (l *echoLogger) Warnj(j log.JSON) {
	l.Logger.Warnln(toJSONString(j))
}

func (l *echoLogger) Errorj(j log.JSON) {
	l.Logger.Errorln(toJSONString(j))
}

func (l *echoLogger) Fatalj(j log.JSON) {
	l.Logger.Fatalln(toJSONString(j))
}

func (l *echoLogger) Panicj(j log.JSON) {
	l.Logger.Panicln(toJSONString(j))
}

func toJSONString(j log.JSON) string {
	b, err := json.Marshal(j)
	if err != nil {
		return ""
	}
	return string(b)
}
