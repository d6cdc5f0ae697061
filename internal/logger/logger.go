package logger

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func init() {
	// Пакеты могут писать в лог до вызова Init (тесты, утилиты).
	Log = logrus.New()
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// SetOutput перенаправляет вывод логгера (используется в тестах).
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// Security пишет событие безопасности: отказ лимитера, неверный код и т.п.
func Security(event string, fields logrus.Fields) {
	Log.WithFields(withCategory("security", event, fields)).Warn(event)
}

// Auth пишет событие аутентификации (отправка и подтверждение кодов).
func Auth(event string, fields logrus.Fields) {
	Log.WithFields(withCategory("auth", event, fields)).Info(event)
}

// SMS пишет событие доставки сообщения.
func SMS(event string, fields logrus.Fields) {
	Log.WithFields(withCategory("sms", event, fields)).Info(event)
}

// Performance пишет длительность операции в миллисекундах.
func Performance(operation string, took time.Duration, fields logrus.Fields) {
	f := withCategory("performance", operation, fields)
	f["duration_ms"] = took.Milliseconds()
	Log.WithFields(f).Debug(operation)
}

// Error пишет ошибку с контекстом.
func Error(err error, fields logrus.Fields) {
	Log.WithFields(fields).WithError(err).Error("request error")
}

func withCategory(category, event string, fields logrus.Fields) logrus.Fields {
	f := logrus.Fields{
		"category": category,
		"event":    event,
	}
	for k, v := range fields {
		f[k] = v
	}
	return f
}
