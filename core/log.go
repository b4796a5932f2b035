package core

import (
	"github.com/sirupsen/logrus"

	"github.com/cgaustin/espa-scheduler/common/logger"
)

var log = logger.New(logrus.StandardLogger(), "core")
