package helper

import (
	"runtime"
	"strings"
)

// GetFuncName returns the fully qualified name of the calling function.
func GetFuncName() string {
	pc, _, _, _ := runtime.Caller(1)
	return runtime.FuncForPC(pc).Name()
}

// ShortFuncName trims the import path from a name returned by GetFuncName.
func ShortFuncName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
