package logs

import log "github.com/sirupsen/logrus"

func ConfigLogLevelToLevel(level int) log.Level {
	switch level {
	case 1:
		return log.InfoLevel
	case 2:
		return log.WarnLevel
	case 3:
		return log.DebugLevel
	default:
		return log.ErrorLevel
	}
}
