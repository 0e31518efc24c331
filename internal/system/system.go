// Пакет system отвечает за окружение пайплайна: наличие ffmpeg/ffprobe,
// выбор H.264-энкодера, размер пула воркеров и поиск фоновой музыки.
package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// CheckFFmpeg проверяет, что ffmpeg доступен в PATH. Без него пайплайн
// не имеет смысла запускать, поэтому падаем сразу, до генерации сценария.
func CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg не найден в PATH: %w", err)
	}
	return nil
}

func CheckFFprobe() error {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return fmt.Errorf("ffprobe не найден в PATH: %w", err)
	}
	return nil
}

// Порядок проб: сначала железо, потом софт.
var encoderPriority = []string{"h264_nvenc", "h264_videotoolbox", "h264_qsv"}

// DetectH264Encoder выбирает лучший доступный H.264-энкодер. Любая ошибка
// пробы трактуется как "железа нет" и возвращается libx264.
func DetectH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(encoders string) string {
	for _, enc := range encoderPriority {
		if strings.Contains(encoders, enc) {
			return enc
		}
	}
	return "libx264"
}

// Workers возвращает размер пула рендеринга по числу физических ядер.
// Каждый воркер порождает свой ffmpeg-процесс, так что hyper-threading
// здесь только мешает.
func Workers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Каждый ffmpeg-процесс держит кадровые буферы суперсэмплированного слайда.
const memoryPerWorker = 512 << 20

// CheckResources предупреждает, если свободной памяти мало для выбранного
// числа воркеров. Это именно предупреждение: запуск продолжается.
func CheckResources(workers int) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	need := uint64(workers) * memoryPerWorker
	if vm.Available < need {
		log.Printf("[!] Свободной памяти %d МБ, для %d воркеров может не хватить",
			vm.Available>>20, workers)
	}
}

// InitResourceLimits поднимает лимит открытых файлов: параллельный рендер
// плюс конкатенация десятков сегментов легко упираются в дефолтные 256.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		log.Printf("[*] Лимит открытых файлов поднят до %d", rLimit.Cur)
	}
}

var musicExtensions = []string{".mp3", ".m4a", ".wav"}

// FindMusic возвращает самый свежий аудиофайл в каталоге. Пустая строка
// не считается ошибкой: ролик собирается без музыки.
func FindMusic(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		isMusic := false
		for _, e := range musicExtensions {
			if ext == e {
				isMusic = true
				break
			}
		}
		if !isMusic {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	return latestFile, nil
}
