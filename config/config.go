package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// DefaultConfPath is read by Setup when no file is given
const DefaultConfPath = "fakedis.conf"

// Properties holds global config properties
var Properties *ServerProperties

// ServerProperties defines global config properties
type ServerProperties struct {
	Bind        string `cfg:"bind"`
	Port        int    `cfg:"port"`
	Databases   int    `cfg:"databases"`
	RequirePass string `cfg:"requirepass"`
	// Version is the emulated server version, such as 7.0.0
	Version    string `cfg:"version"`
	MaxClients int    `cfg:"maxclients"`
	Multicore  bool   `cfg:"multicore"`

	LogDir   string `cfg:"logdir"`
	LogLevel string `cfg:"loglevel"`
	// MetricsAddr exposes prometheus metrics when not empty
	MetricsAddr string `cfg:"metrics-addr"`
}

// Defaults returns properties used when no config file exists
func Defaults() *ServerProperties {
	return &ServerProperties{
		Bind:       "127.0.0.1",
		Port:       6379,
		Databases:  16,
		Version:    "7.0.0",
		MaxClients: 1000,
		LogLevel:   "info",
	}
}

func init() {
	Properties = Defaults()
}

// Parse reads a redis.conf style source, unknown keys are ignored and absent keys keep their default
func Parse(src io.Reader) (*ServerProperties, error) {
	config := Defaults()

	rawMap := make(map[string]string)
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		pivot := strings.IndexAny(line, " \t")
		if pivot > 0 && pivot < len(line)-1 {
			key := line[0:pivot]
			value := strings.Trim(line[pivot+1:], " \t\"")
			rawMap[strings.ToLower(key)] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	t := reflect.TypeOf(config)
	v := reflect.ValueOf(config)
	n := t.Elem().NumField()
	for i := 0; i < n; i++ {
		field := t.Elem().Field(i)
		fieldVal := v.Elem().Field(i)
		key, ok := field.Tag.Lookup("cfg")
		if !ok {
			key = field.Name
		}
		value, ok := rawMap[strings.ToLower(key)]
		if !ok {
			continue
		}
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(value)
		case reflect.Int:
			intValue, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("config %s: %w", key, err)
			}
			fieldVal.SetInt(intValue)
		case reflect.Bool:
			fieldVal.SetBool(toBool(value))
		case reflect.Slice:
			if field.Type.Elem().Kind() == reflect.String {
				fieldVal.Set(reflect.ValueOf(strings.Split(value, ",")))
			}
		}
	}
	return config, nil
}

// Setup reads config file and stores properties into Properties.
// An empty filename falls back to DefaultConfPath, and to the defaults if it does not exist
func Setup(configFilename string) error {
	if configFilename == "" {
		if !defaultConfigFileExists() {
			Properties = Defaults()
			return nil
		}
		configFilename = DefaultConfPath
	}
	file, err := os.Open(configFilename)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	p, err := Parse(file)
	if err != nil {
		return err
	}
	Properties = p
	return nil
}

// ParseVersion parses "major.minor.patch", missing parts are 0
func ParseVersion(s string) ([3]int, error) {
	var version [3]int
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return version, fmt.Errorf("illegal version %q", s)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return version, fmt.Errorf("illegal version %q", s)
		}
		version[i] = n
	}
	return version, nil
}

func defaultConfigFileExists() bool {
	info, err := os.Stat(DefaultConfPath)
	return err == nil && !info.IsDir()
}

func toBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "t", "y", "1":
		return true
	default:
		return false
	}
}
