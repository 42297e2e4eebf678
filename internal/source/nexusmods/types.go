package nexusmods

import "strconv"

// fileData is a mod file as returned by the GraphQL modFiles query
type fileData struct {
	FileID      int    `graphql:"fileId"`
	Name        string `graphql:"name"`
	Version     string `graphql:"version"`
	URI         string `graphql:"uri"`
	SizeInBytes string `graphql:"sizeInBytes"`
}

// size parses SizeInBytes, which the API serializes as a BigInt string
func (f fileData) size() int64 {
	n, err := strconv.ParseInt(f.SizeInBytes, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// downloadLink is one CDN entry from the download_link.json endpoint
type downloadLink struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	URI       string `json:"URI"`
}
