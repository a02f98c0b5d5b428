package logger

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func (f StringField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Str(f.Key, f.Value)
}

func (f StringField) applyContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Str(f.Key, f.Value)
}

func (f StringsField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Strs(f.Key, f.Value)
}

func (f StringsField) applyContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Strs(f.Key, f.Value)
}

func (f IntField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Int(f.Key, f.Value)
}

func (f IntField) applyContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Int(f.Key, f.Value)
}

func (f BoolField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Bool(f.Key, f.Value)
}

func (f BoolField) applyContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Bool(f.Key, f.Value)
}

func (f DurationField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Dur(f.Key, f.Value)
}

func (f DurationField) applyContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Dur(f.Key, f.Value)
}

func (f ErrorField) apply(event *zerolog.Event) *zerolog.Event {
	return event.AnErr(f.Key, f.Value)
}

func (f ErrorField) applyContext(ctx zerolog.Context) zerolog.Context {
	return ctx.AnErr(f.Key, f.Value)
}

func (f AnyField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Interface(f.Key, f.Value)
}

func (f AnyField) applyContext(ctx zerolog.Context) zerolog.Context {
	return ctx.Interface(f.Key, f.Value)
}

// ZerologLogger implements Logger using zerolog. The level is carried by the
// logger instance, never set globally, so several clients in one process can
// log at different levels.
type ZerologLogger struct {
	logger     zerolog.Logger
	config     *Config
	fileWriter *lumberjack.Logger
}

// NewZerologLogger creates a new ZerologLogger. A file output that cannot be
// opened is reported on the remaining outputs and skipped.
func NewZerologLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var writers []io.Writer
	var fileWriter *lumberjack.Logger
	var fileErr error

	if config.FileConfig != nil {
		fileWriter, fileErr = config.FileConfig.open()
		if fileErr == nil {
			writers = append(writers, fileWriter)
		}
	}

	for _, output := range config.Outputs {
		if config.Format == DefaultFormat {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: "15:04:05",
				NoColor:    config.NoColor,
				PartsOrder: []string{
					zerolog.TimestampFieldName,
					zerolog.LevelFieldName,
					zerolog.CallerFieldName,
					"module",
					zerolog.MessageFieldName,
				},
			})
		} else {
			writers = append(writers, output)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(writer).Level(config.Level.zerolog()).With().Timestamp().Logger()

	if config.EnableCaller {
		logger = logger.With().CallerWithSkipFrameCount(3).Logger()
	}
	if config.Subsystem != "" {
		logger = logger.With().Str("module", config.Subsystem).Logger()
	}

	zl := &ZerologLogger{
		logger:     logger,
		config:     config,
		fileWriter: fileWriter,
	}
	if fileErr != nil {
		zl.Warn(fmt.Sprintf("file logging disabled: %v", fileErr))
	}
	return zl
}

// NewNopLogger returns a logger that discards everything. It is the default
// for library clients.
func NewNopLogger() Logger {
	return &ZerologLogger{
		logger: zerolog.Nop(),
		config: &Config{Level: DisabledLevel},
	}
}

func (zl *ZerologLogger) logWithFields(event *zerolog.Event, msg string, fields []TypedField) {
	if event == nil {
		return
	}
	for _, field := range fields {
		event = field.apply(event)
	}
	event.Msg(msg)
}

func (zl *ZerologLogger) Trace(msg string, fields ...TypedField) {
	zl.logWithFields(zl.logger.Trace(), msg, fields)
}

func (zl *ZerologLogger) Debug(msg string, fields ...TypedField) {
	zl.logWithFields(zl.logger.Debug(), msg, fields)
}

func (zl *ZerologLogger) Info(msg string, fields ...TypedField) {
	zl.logWithFields(zl.logger.Info(), msg, fields)
}

func (zl *ZerologLogger) Warn(msg string, fields ...TypedField) {
	zl.logWithFields(zl.logger.Warn(), msg, fields)
}

func (zl *ZerologLogger) Error(msg string, fields ...TypedField) {
	zl.logWithFields(zl.logger.Error(), msg, fields)
}

// WithSubsystem creates a new logger with a subsystem
func (zl *ZerologLogger) WithSubsystem(name string) Logger {
	return &ZerologLogger{
		logger:     zl.logger.With().Str("module", name).Logger(),
		config:     zl.config,
		fileWriter: zl.fileWriter,
	}
}

// WithFields creates a new logger with additional fields
func (zl *ZerologLogger) WithFields(fields ...TypedField) Logger {
	if len(fields) == 0 {
		return zl
	}
	ctx := zl.logger.With()
	for _, field := range fields {
		ctx = field.applyContext(ctx)
	}
	return &ZerologLogger{
		logger:     ctx.Logger(),
		config:     zl.config,
		fileWriter: zl.fileWriter,
	}
}

// IsLevelEnabled checks if a log level is enabled
func (zl *ZerologLogger) IsLevelEnabled(level LogLevel) bool {
	if level == DisabledLevel {
		return false
	}
	current := zl.logger.GetLevel()
	if current == zerolog.Disabled {
		return false
	}
	return current <= level.zerolog()
}

// Close closes the logger and cleans up resources
func (zl *ZerologLogger) Close() error {
	if zl.fileWriter != nil {
		return zl.fileWriter.Close()
	}
	return nil
}
