package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var dateInName = regexp.MustCompile(`_(\d{8})_?`)

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 从文件名中提取日期标签（形如 _20230921_），找不到则回退到文件修改日期
func GetFileDateTag(path string) (tag string) {
	if m := dateInName.FindStringSubmatch(filepath.Base(path)); m != nil {
		tag = m[1]
		return
	}
	if st, err := os.Stat(path); err == nil {
		tag = st.ModTime().Format("20060102")
	} else {
		tag = time.Now().Format("20060102")
	}
	return
}
