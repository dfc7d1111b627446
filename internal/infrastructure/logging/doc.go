// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components take a *Logger and derive a named child:
//
//	logger := logging.NewDefault().Named("coordinator")
//	logger.Warn("protocol violation",
//	    zap.Int32("process_id", int32(pid)),
//	    zap.String("kind", msg.Kind().String()))
//
// Tests pass logging.NewNop().
package logging
