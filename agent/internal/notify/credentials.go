package notify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
)

// channelSection is the key file section mapping channel names to URL suffixes.
const channelSection = "channel"

type tomlKeyFile struct {
	Channel map[string]string `toml:"channel"`
}

// lookupChannel reads the key file at path and returns the URL suffix
// configured for channel.
func lookupChannel(path, channel string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no key file configured", ErrKeyFileNotFound)
	}
	if channel == "" {
		return "", fmt.Errorf("%w: no channel configured", ErrChannelUndefined)
	}

	path, err := expandHome(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyFileNotFound, err)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrKeyFileNotFound, path)
		}
		return "", fmt.Errorf("%w: %v", ErrKeyFileInvalid, err)
	}

	var channels map[string]string
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		channels, err = readTOML(path)
	} else {
		channels, err = readINI(path)
	}
	if err != nil {
		return "", err
	}

	suffix := strings.TrimSpace(channels[strings.ToLower(channel)])
	if suffix == "" {
		return "", fmt.Errorf("%w: %q in %s", ErrChannelUndefined, channel, path)
	}
	return suffix, nil
}

// readINI parses an INI key file. Channel names are case-insensitive.
func readINI(path string) (map[string]string, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFileInvalid, err)
	}
	sec, err := f.GetSection(channelSection)
	if err != nil {
		return nil, fmt.Errorf("%w: no [%s] section in %s", ErrChannelUndefined, channelSection, path)
	}
	out := make(map[string]string)
	for _, k := range sec.Keys() {
		out[strings.ToLower(k.Name())] = k.String()
	}
	return out, nil
}

// readTOML parses a TOML key file with a [channel] table of strings.
func readTOML(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFileInvalid, err)
	}
	var kf tomlKeyFile
	if err := toml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFileInvalid, err)
	}
	if kf.Channel == nil {
		return nil, fmt.Errorf("%w: no [%s] table in %s", ErrChannelUndefined, channelSection, path)
	}
	out := make(map[string]string, len(kf.Channel))
	for k, v := range kf.Channel {
		out[strings.ToLower(k)] = v
	}
	return out, nil
}

// expandHome replaces a leading "~" with the current user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
