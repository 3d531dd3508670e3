// locationsctl — операторская утилита для locations-gateway:
// пакетный импорт файлов, поиск и выгрузка дерева.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env необязателен.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
