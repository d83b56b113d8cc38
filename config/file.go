package config

import "os"

func yamlReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
