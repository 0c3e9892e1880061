// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada request lleva su propio logger "scoped" con campos
//     adicionales (request_id, firewall, service) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Levels: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Usage
//
// Inicialización (una vez en el comando serve):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,      // "dev" o "prod"
//	    Level: cfg.App.LogLevel, // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En controllers/services (con contexto):
//
//	log := logger.From(ctx)
//	log.Warn("target path rejected", logger.Firewall(fw), logger.TargetPath(target))
//
// Sin contexto (fallback a singleton):
//
//	logger.L().Info("server started")
package logger
