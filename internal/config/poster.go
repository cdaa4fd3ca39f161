package config

import "os"

// PosterConfig configures the optional poster mirror.  When Bucket is empty
// posters keep pointing at the movie database's image CDN.
type PosterConfig struct {
	Bucket          string // target bucket; empty disables mirroring
	Region          string // S3 region ("auto" for R2)
	Endpoint        string // custom S3-compatible endpoint (R2, MinIO)
	AccessKeyID     string
	AccessKeySecret string
	CDNBaseURL      string // public base URL joined with object keys
	KeyPrefix       string // object key prefix
}

// LoadPosterConfig reads POSTER_* variables.  The CDN base URL falls back
// to the endpoint and bucket so mirrored posters stay reachable.
func LoadPosterConfig() PosterConfig {
	pc := PosterConfig{
		Bucket:          os.Getenv("POSTER_BUCKET"),
		Region:          envStr("POSTER_REGION", "auto"),
		Endpoint:        os.Getenv("POSTER_ENDPOINT"),
		AccessKeyID:     os.Getenv("POSTER_ACCESS_KEY_ID"),
		AccessKeySecret: os.Getenv("POSTER_ACCESS_KEY_SECRET"),
		CDNBaseURL:      os.Getenv("POSTER_CDN_BASE_URL"),
		KeyPrefix:       envStr("POSTER_KEY_PREFIX", "posters"),
	}
	if pc.CDNBaseURL == "" && pc.Endpoint != "" {
		pc.CDNBaseURL = pc.Endpoint + "/" + pc.Bucket
	}
	return pc
}

// Enabled reports whether posters should be mirrored.
func (pc PosterConfig) Enabled() bool { return pc.Bucket != "" }
