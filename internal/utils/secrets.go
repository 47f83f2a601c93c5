package utils

import (
	"fmt"
	"os"
	"strings"
)

const secretsDir = "/run/secrets"

// ReadSecret читает Docker-секрет из /run/secrets/<name>.
// Если файл секрета отсутствует, используется одноименная переменная
// окружения в верхнем регистре (удобно для локальной разработки).
func ReadSecret(secretName string) (string, error) {
	path := fmt.Sprintf("%s/%s", secretsDir, secretName)
	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	if env := os.Getenv(strings.ToUpper(secretName)); env != "" {
		return strings.TrimSpace(env), nil
	}

	return "", fmt.Errorf("не удалось прочитать секрет %s: %w", secretName, err)
}
