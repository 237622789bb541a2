package accesssecurity

import "os"

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readFileBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}
