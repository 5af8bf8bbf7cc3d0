package formatter

import (
	"fmt"
	"path"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	sourceKey = "source"
	repoDir   = "minion-installer"
)

// ContextHook adds the caller's file and line, relative to the module root, to every entry
type ContextHook struct {
	// roots are tried in order, the build module path first
	roots []string
}

func NewContextHook() *ContextHook {
	return &ContextHook{roots: []string{buildModulePath() + "/", repoDir + "/"}}
}

func (hook ContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook ContextHook) Fire(entry *logrus.Entry) error {
	if entry.Caller == nil {
		return nil
	}
	entry.Data[sourceKey] = fmt.Sprintf("%s:%d", hook.parseSrc(entry.Caller.File), entry.Caller.Line)
	return nil
}

func buildModulePath() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		return info.Main.Path
	}
	return repoDir
}

// parseSrc trims the file path to the part below the module root. Files outside the module keep
// their package directory and name
func (hook ContextHook) parseSrc(filePath string) string {
	for _, root := range hook.roots {
		if i := strings.LastIndex(filePath, root); i >= 0 {
			return filePath[i+len(root):]
		}
	}

	_, pkg := path.Split(path.Dir(filePath))
	return pkg + "/" + path.Base(filePath)
}
