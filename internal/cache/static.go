package cache

// staticCache maps a static file URL path to its quoted ETag.
var staticCache = NewCache[string, string]()

func GetStaticHash(path string) (string, bool) {
	return staticCache.Get(path)
}

func SetStaticHash(path, etag string) {
	staticCache.Set(path, etag)
}
