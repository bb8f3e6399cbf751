package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var configPath = "./configs/"
var envConfigPath = "./.env"

func init() {
	LoadConf()
}

// LoadConf merges every file under ./configs plus the optional .env file
// into the global viper instance. Process environment wins over both.
func LoadConf() {
	if err := mergeConfigDir(); err != nil {
		log.Fatalln("loading config directory failed:", err.Error())
	}
	if err := mergeEnv(); err != nil {
		log.Fatalln("loading environment failed:", err.Error())
	}
}

// mergeConfigDir merges all files under configPath in directory order.
// Later files win on key conflicts.
func mergeConfigDir() error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil
	}
	exist, _ := pathExists(absPath)
	if !exist {
		return nil
	}
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].IsDir() {
			continue
		}
		viper.SetConfigFile(filepath.Join(absPath, entries[i].Name()))
		if err := viper.MergeInConfig(); err != nil {
			return err
		}
	}
	return nil
}

// mergeEnv layers the process environment and the optional .env file on top
// of the file config, mapping FEED_INTERVAL style keys onto feed.interval.
func mergeEnv() error {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envViper := viper.New()
	absPath, err := filepath.Abs(envConfigPath)
	if err != nil {
		return nil
	}
	exist, _ := pathExists(absPath)
	if exist {
		envViper.SetConfigFile(absPath)
		if err := envViper.ReadInConfig(); err != nil {
			return err
		}
	}
	for _, key := range envViper.AllKeys() {
		viper.Set(strings.Replace(key, "_", ".", 1), envViper.Get(key))
	}

	return nil
}

// Watch enables config hot reload. Viper watches the last merged file and
// invokes onChange after re-reading it.
func Watch(onChange func()) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		logrus.Printf("config file updated: %s", e.Name)
		if onChange != nil {
			onChange()
		}
	})
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
