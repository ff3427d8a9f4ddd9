package modpipe

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func logf(enabled bool, fields logrus.Fields, format string, args ...interface{}) {
	if enabled {
		logrus.WithFields(fields).Infof(format, args...)
	}
}

func debugf(enabled bool, fields logrus.Fields, format string, args ...interface{}) {
	if enabled {
		logrus.WithFields(fields).Debugf(format, args...)
	}
}

// logFailure reports a failed item. Failures are logged as warnings even
// when informational logging is disabled.
func logFailure(err error, fields logrus.Fields) {
	entry := logrus.WithFields(fields)

	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		entry = entry.WithField("kind", itemErr.Kind)
		err = itemErr.Err
	}

	entry.Warnf("skipped: %v", err)
}
