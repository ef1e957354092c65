package output

type ConfigPort interface {
	Get(key string) string
	Lookup(key string) (string, bool)
}
