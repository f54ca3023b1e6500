package resolver

import "fmt"

// FileType identifies what kind of theme file is being resolved. The type
// fixes both the directory searched inside each theme and the default
// extension appended to bare logical names.
type FileType string

const (
	FileTemplate FileType = "template"
	FilePartial  FileType = "partial"
	FileLayout   FileType = "layout"
	FileAsset    FileType = "asset"
	FileStyle    FileType = "style"
	FileScript   FileType = "script"
	FileImage    FileType = "image"
	FileFont     FileType = "font"
	FileConfig   FileType = "config"
)

var fileTypeDirs = map[FileType]string{
	FileTemplate: "templates",
	FilePartial:  "partials",
	FileLayout:   "layouts",
	FileAsset:    "assets",
	FileStyle:    "assets/css",
	FileScript:   "assets/js",
	FileImage:    "assets/images",
	FileFont:     "assets/fonts",
	FileConfig:   "config",
}

var fileTypeExts = map[FileType]string{
	FileTemplate: ".html",
	FilePartial:  ".html",
	FileLayout:   ".html",
	FileStyle:    ".css",
	FileScript:   ".js",
}

// ParseFileType validates a file type string from config or CLI input.
func ParseFileType(s string) (FileType, error) {
	ft := FileType(s)
	if _, ok := fileTypeDirs[ft]; !ok {
		return "", fmt.Errorf("unknown file type %q", s)
	}
	return ft, nil
}

// Dir returns the directory this type lives in inside a theme.
func (ft FileType) Dir() string {
	return fileTypeDirs[ft]
}

// DefaultExt returns the extension appended to names that carry none.
// Empty for types whose names are always fully qualified (assets, images,
// fonts, config).
func (ft FileType) DefaultExt() string {
	return fileTypeExts[ft]
}
