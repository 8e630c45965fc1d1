package reqlog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/Station-Manager/errors"
	"github.com/Station-Manager/utils"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func newRollingFileWriter(f *FileOptions) (*lumberjack.Logger, error) {
	const op errors.Op = "reqlog.newRollingFileWriter"

	name := f.Filename
	if name == emptyString {
		exeName, err := utils.ExecName(true)
		if err != nil {
			return nil, errors.New(op).Err(err).Msg(errMsgExecName)
		}
		if exeName == emptyString {
			exeName = defaultServiceName
		}
		name = exeName + ".log"
	}

	if f.Dir != emptyString {
		if err := os.MkdirAll(f.Dir, 0o755); err != nil {
			return nil, errors.New(op).Err(err).Msg(errMsgLogDir)
		}
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(f.Dir, name),
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		MaxSize:    f.MaxSizeMB,
		Compress:   f.Compress,
	}, nil
}

// initializeWriters builds the sink writer: console (JSON or pretty) plus the
// optional rolling file, behind path redaction and a mutex so that every
// line is written in one piece.
func initializeWriters(o Options) (io.Writer, *lumberjack.Logger, error) {
	var writers []io.Writer

	if o.PrettyPrint != nil && *o.PrettyPrint {
		cw := zerolog.ConsoleWriter{Out: o.Output, NoColor: o.ConsoleNoColor}
		if o.ConsoleTimeFormat != emptyString {
			cw.TimeFormat = o.ConsoleTimeFormat
		}
		writers = append(writers, cw)
	} else {
		writers = append(writers, o.Output)
	}

	var fileWriter *lumberjack.Logger
	if o.File != nil {
		fw, err := newRollingFileWriter(o.File)
		if err != nil {
			return nil, nil, err
		}
		fileWriter = fw
		writers = append(writers, fw)
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = io.MultiWriter(writers...)
	}
	return zerolog.SyncWriter(newRedactWriter(w, o.RedactPaths)), fileWriter, nil
}
