// Package log is the logging surface of folio.
//
// Components log through the [Logger] interface with typed [Field] values.
// [ZerologAdapter] writes them with zerolog; [NoopLogger] drops them.
//
//	base := log.NewZerologAdapterWithLogger(log.NewConsoleLogger("debug"))
//	feedLog := base.With(log.Component("realtime"))
//	feedLog.Warn("reconnecting", log.Int("attempt", 3))
//
// Embedders that already run another logging library implement Logger
// themselves and pass it with folio.WithLogger.
package log
