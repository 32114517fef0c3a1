package pipeline

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"medteam/pkg/errors"
	"medteam/pkg/logger"
)

// LoadReport reads the whole medical report as text. Invalid UTF-8 sequences
// are dropped with a warning; a read failure is an ErrIO error.
func LoadReport(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(errors.Tag(err, errors.ErrIO), "read report %s", path)
	}

	report := string(data)
	if !utf8.ValidString(report) {
		logger.Component("pipeline").Warnf("Report %s contains invalid UTF-8, dropping bad sequences", path)
		report = strings.ToValidUTF8(report, "")
	}

	if strings.TrimSpace(report) == "" {
		logger.Component("pipeline").Warnf("Report %s is empty", path)
	}

	logger.Component("pipeline").Debugf("Loaded report %s (%s)", path, humanize.Bytes(uint64(len(data))))
	return report, nil
}
