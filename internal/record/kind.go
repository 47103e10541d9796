package record

import (
	"path/filepath"
	"strings"
)

// Kind is a coarse classification of a file for display purposes.
type Kind string

const (
	KindImage     Kind = "IMAGE"
	KindVideo     Kind = "VIDEO"
	KindAudio     Kind = "AUDIO"
	KindArchive   Kind = "ARCHIVE"
	KindDocument  Kind = "DOCUMENT"
	KindCode      Kind = "CODE"
	KindInstaller Kind = "INSTALLER"
	KindOther     Kind = "OTHER"
)

var kindByExt = map[string]Kind{
	".jpg": KindImage, ".jpeg": KindImage, ".png": KindImage, ".gif": KindImage,
	".webp": KindImage, ".heic": KindImage, ".svg": KindImage, ".bmp": KindImage,
	".tiff": KindImage,

	".mp4": KindVideo, ".mov": KindVideo, ".mkv": KindVideo, ".avi": KindVideo,
	".webm": KindVideo, ".m4v": KindVideo,

	".mp3": KindAudio, ".m4a": KindAudio, ".wav": KindAudio, ".flac": KindAudio,
	".ogg": KindAudio, ".aac": KindAudio, ".aiff": KindAudio,

	".zip": KindArchive, ".tar": KindArchive, ".gz": KindArchive, ".bz2": KindArchive,
	".xz": KindArchive, ".7z": KindArchive, ".rar": KindArchive, ".tgz": KindArchive,

	".pdf": KindDocument, ".doc": KindDocument, ".docx": KindDocument,
	".xls": KindDocument, ".xlsx": KindDocument, ".ppt": KindDocument,
	".pptx": KindDocument, ".txt": KindDocument, ".md": KindDocument,
	".rtf": KindDocument, ".csv": KindDocument, ".epub": KindDocument,

	".go": KindCode, ".py": KindCode, ".js": KindCode, ".ts": KindCode,
	".c": KindCode, ".h": KindCode, ".rs": KindCode, ".java": KindCode,
	".sh": KindCode, ".json": KindCode, ".yaml": KindCode, ".yml": KindCode,
	".toml": KindCode, ".sql": KindCode,

	".dmg": KindInstaller, ".pkg": KindInstaller, ".deb": KindInstaller,
	".rpm": KindInstaller, ".appimage": KindInstaller, ".msi": KindInstaller,
	".exe": KindInstaller, ".apk": KindInstaller, ".iso": KindInstaller,
}

// KindForPath classifies a file by its extension alone. Unknown extensions
// and extensionless names map to KindOther.
func KindForPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if k, ok := kindByExt[ext]; ok {
		return k
	}
	return KindOther
}
