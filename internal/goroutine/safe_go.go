package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
}

// RecoveryHandler обрабатывает panic в горутинах и cron-задачах
type RecoveryHandler struct {
	logger func() Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(l Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: func() Logger { return l }}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go rh.Run("goroutine", fn)
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go rh.Run("goroutine", func() { fn(ctx) })
}

// Run выполняет fn в текущей горутине; panic логируется и не выходит наружу.
func (rh *RecoveryHandler) Run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rh.logger().WithFields(logrus.Fields{
				"task":  name,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("panic recovered")
		}
	}()
	fn()
}

// DefaultRecoveryHandler пишет в глобальный логгер; берёт его при каждом panic,
// потому что logger.Init заменяет logger.Log.
var DefaultRecoveryHandler = &RecoveryHandler{logger: func() Logger { return logger.Log }}

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext - упрощенная функция для запуска безопасной горутины с контекстом
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}

// Recover выполняет fn синхронно под DefaultRecoveryHandler.
func Recover(name string, fn func()) {
	DefaultRecoveryHandler.Run(name, fn)
}
