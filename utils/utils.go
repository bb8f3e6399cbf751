package utils

import (
	"quotefeed/utils/config"
	"quotefeed/utils/log"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func init() {
	config.LoadConf()
	Log = log.InitLogger()
}
