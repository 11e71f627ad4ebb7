package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志配置，由conf.LogConfig映射过来，避免pkg反向依赖conf
type Options struct {
	Level      string
	FileName   string
	TimeFormat string
	MaxSize    int // 单个日志文件最大MB
	MaxBackups int
	MaxAge     int // 保留天数
	Compress   bool
	LocalTime  bool
	Console    bool // 是否同时输出到控制台
}

var lg *zap.Logger = zap.NewNop()
var sugar *zap.SugaredLogger = lg.Sugar()

// Init 初始化全局logger，进程启动时调用一次
func Init(opt Options) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(opt.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	if opt.TimeFormat != "" {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(opt.TimeFormat)
	} else {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	encoder := zapcore.NewJSONEncoder(encCfg)

	var cores []zapcore.Core
	if opt.FileName != "" {
		// 日志滚动交给lumberjack
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.FileName,
			MaxSize:    opt.MaxSize,
			MaxBackups: opt.MaxBackups,
			MaxAge:     opt.MaxAge,
			Compress:   opt.Compress,
			LocalTime:  opt.LocalTime,
		})
		cores = append(cores, zapcore.NewCore(encoder, w, level))
	}
	if opt.Console || opt.FileName == "" {
		consoleEnc := zap.NewDevelopmentEncoderConfig()
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.AddSync(os.Stdout), level))
	}

	lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	sugar = lg.Sugar()
}

// Pair 构造一个结构化字段
func Pair(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

func Info(msg string, fields ...zap.Field)  { lg.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { lg.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { lg.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { lg.Fatal(msg, fields...) }

func Debugf(format string, args ...interface{}) { sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { sugar.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { sugar.Fatalf(format, args...) }

// Sync 进程退出前刷盘
func Sync() {
	_ = lg.Sync()
}
