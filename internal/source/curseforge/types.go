package curseforge

// apiResponse wraps all CurseForge API responses
type apiResponse[T any] struct {
	Data T `json:"data"`
}

// file is the subset of a CurseForge file record used to resolve downloads
type file struct {
	ID          int        `json:"id"`
	ModID       int        `json:"modId"`
	IsAvailable bool       `json:"isAvailable"`
	DisplayName string     `json:"displayName"`
	FileName    string     `json:"fileName"`
	FileLength  int64      `json:"fileLength"`
	DownloadURL string     `json:"downloadUrl"`
	Hashes      []fileHash `json:"hashes"`
}

// fileHash contains hash info for a file
type fileHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"` // 1=SHA1, 2=MD5
}

const hashAlgoMD5 = 2

func (f *file) md5() string {
	for _, h := range f.Hashes {
		if h.Algo == hashAlgoMD5 {
			return h.Value
		}
	}
	return ""
}
