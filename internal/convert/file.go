package convert

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/weak-head/fl-pipe/internal/logger"
)

// OutputName derives the name of the converted file from the source name
// by replacing its extension with FileExtension.
func OutputName(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + FileExtension
}

// ConvertFile converts the file at src into a new file at dst.
//
// The conversion is all-or-nothing: when it fails, dst and src are both
// removed. The source is consumed once, so on success src is removed too
// unless the converter is configured to keep it.
//
// A dst that names the src file is rejected with ErrOutputIsSource,
// leaving both untouched.
func (c *Converter) ConvertFile(ctx context.Context, src, dst, mimeType string) (*Result, error) {
	log := c.log.WithFields(logger.Fields{
		logger.FieldFunction: "Converter.ConvertFile",
		"src":                src,
		"dst":                dst,
	})

	if samePath(src, dst) {
		return nil, c.rejectOutput(log)
	}

	in, err := os.Open(src)
	if err != nil {
		log.Error(err, "Failed to open the source file.")
		return nil, &Error{Op: "open source", Session: InvalidSession, Err: err}
	}

	info, err := in.Stat()
	if err != nil {
		_ = in.Close()
		log.Error(err, "Failed to stat the source file.")
		return nil, &Error{Op: "stat source", Session: InvalidSession, Err: err}
	}

	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		_ = in.Close()
		return nil, c.rejectOutput(log)
	}

	if info.Size() == 0 {
		_ = in.Close()
		c.removeFile(log, src)
		err := &Error{Op: "convert", Session: InvalidSession, Err: ErrEmptyInput}
		c.reporter.ConversionFailed(c.config.Engine, KindEmptyInput)
		log.Error(err, "The source file is empty.")
		return nil, err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		_ = in.Close()
		c.removeFile(log, src)
		log.Error(err, "Failed to create the output file.")
		return nil, &Error{Op: "create output", Session: InvalidSession, Err: err}
	}

	res, err := c.Convert(ctx, mimeType, in, info.Size(), out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = &Error{Op: "close output", Session: res.Session, Err: cerr}
		res = nil
	}
	_ = in.Close()

	if err != nil {
		c.removeFile(log, dst)
		c.removeFile(log, src)
		log.Error(err, "Conversion has failed, removed the output and the source.")
		return nil, err
	}

	if !c.config.KeepSource {
		c.removeFile(log, src)
	}

	return res, nil
}

func (c *Converter) rejectOutput(log logger.Log) error {
	err := &Error{Op: "create output", Session: InvalidSession, Err: ErrOutputIsSource}
	c.reporter.ConversionFailed(c.config.Engine, KindOutputIsSource)
	log.Error(err, "The output file would overwrite the source file.")
	return err
}

// samePath reports whether a and b name the same path once cleaned.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// removeFile deletes path, logging instead of failing when it cannot.
func (c *Converter) removeFile(log logger.Log, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", path).Warn("Could not remove the file: " + err.Error())
	}
}
