package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/solovev/shortsgen/internal/config"
	"github.com/solovev/shortsgen/internal/engine"
	"github.com/solovev/shortsgen/internal/media"
	"github.com/solovev/shortsgen/internal/render"
	"github.com/solovev/shortsgen/internal/retry"
	"github.com/solovev/shortsgen/internal/system"
)

const version = "0.3.0"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	configPtr := flag.String("config", "config.yaml", "Путь к файлу конфигурации")
	typePtr := flag.String("type", "", "Тип контента: quote, english, knowledge, motivation, custom")
	topicPtr := flag.String("topic", "", "Тема для типа custom")
	voicePtr := flag.String("voice", "", "Голос озвучки: ko-female, ko-male, en-female, en-male")
	ratePtr := flag.String("rate", "", "Скорость речи (например: +10%)")
	noTTSPtr := flag.Bool("no-tts", false, "Отключить озвучку")
	musicPtr := flag.String("music", "", "Путь к фоновой музыке (по умолчанию: самый свежий файл в assets/bgm/)")
	outPtr := flag.String("out", "", "Путь к видео (если пусто, имя генерируется в output/)")
	seedPtr := flag.Int64("seed", 0, "Зерно планировщика камеры (0 - фиксированный цикл направлений)")
	motionOutPtr := flag.String("motion-out", "", "Сохранить траектории камеры в YAML")
	motionInPtr := flag.String("motion-in", "", "Взять траектории камеры из YAML вместо планировщика")
	schedulePtr := flag.String("schedule", "", "Cron-выражение для регулярной генерации (например: 0 9 * * *)")
	versionPtr := flag.Bool("v", false, "Показать версию")

	flag.Parse()

	if *versionPtr {
		fmt.Printf("shortsgen v%s\n", version)
		return
	}

	// .env рядом с бинарником: GEMINI_API_KEY удобно держать вне конфига.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPtr)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	// Флаги перекрывают файл.
	if *typePtr != "" {
		cfg.Script.ContentType = *typePtr
	}
	if *topicPtr != "" {
		cfg.Script.Topic = *topicPtr
	}
	if *voicePtr != "" {
		cfg.Audio.Voice = *voicePtr
	}
	if *ratePtr != "" {
		cfg.Audio.Rate = *ratePtr
	}
	if *noTTSPtr {
		cfg.Audio.Narration = false
	}
	if *musicPtr != "" {
		cfg.Audio.MusicFile = *musicPtr
	}
	if *seedPtr != 0 {
		cfg.Motion.Seed = *seedPtr
	}
	if cfg.Script.APIKey == "" {
		cfg.Script.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := system.CheckFFmpeg(); err != nil {
		log.Fatalf("[-] %v", err)
	}
	if err := system.CheckFFprobe(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	if cfg.Script.APIKey == "" {
		fmt.Println("[-] Не задан ключ Gemini API.")
		fmt.Println("    Укажите script.api_key в config.yaml или переменную GEMINI_API_KEY (.env).")
		fmt.Println("    Получить ключ: https://aistudio.google.com/apikey")
		os.Exit(1)
	}

	os.MkdirAll(cfg.Pipeline.OutputDir, 0755)
	os.MkdirAll(cfg.Audio.MusicDir, 0755)

	if cfg.Video.Encoder == "" {
		cfg.Video.Encoder = system.DetectH264Encoder()
	}
	if cfg.Video.Encoder != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.Video.Encoder)
	}

	p, err := engine.New(&cfg)
	if err != nil {
		fail(err)
	}
	p.OutPath = *outPtr
	p.MotionIn = *motionInPtr
	p.MotionOut = *motionOutPtr

	if *schedulePtr != "" {
		runOnSchedule(p, *schedulePtr)
		return
	}

	out, err := p.Run(context.Background())
	if err != nil {
		fail(err)
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", out)
}

// loadConfig: явно указанный файл обязан существовать, дефолтный config.yaml
// может отсутствовать.
func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == "config.yaml" {
			fmt.Println("[*] config.yaml не найден, используются значения по умолчанию")
			return config.Default(), nil
		}
		return config.Config{}, err
	}
	return config.Load(path)
}

// runOnSchedule блокируется и запускает генерацию по cron-расписанию.
// Упавший прогон логируется, расписание продолжает работать.
func runOnSchedule(p *engine.Pipeline, expr string) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if out, err := p.Run(context.Background()); err != nil {
			log.Printf("[!] Прогон по расписанию не удался: %v", err)
		} else {
			fmt.Printf("[+++] Успех! Результат: %s\n", out)
		}
	})
	if err != nil {
		log.Fatalf("[-] Неверное cron-выражение %q: %v", expr, err)
	}
	fmt.Printf("[*] Расписание активно: %s (остановка по Ctrl+C)\n", expr)
	c.Run()
}

// fail переводит типизированные ошибки пайплайна в сообщение для пользователя.
func fail(err error) {
	var verr *config.ValidationError
	var aerr *media.UnreadableAudioError
	var rerr *render.RenderError
	var derr *media.DurationMismatchError
	var serr *retry.ExternalServiceError

	switch {
	case errors.As(err, &verr):
		log.Fatalf("[-] Неверная конфигурация: %v", err)
	case errors.As(err, &aerr):
		log.Fatalf("[-] Не удалось прочитать длительность озвучки %s: %v", aerr.Path, err)
	case errors.As(err, &rerr):
		log.Fatalf("[-] Слайд %d не отрендерился даже статичным кадром: %v", rerr.SlideIndex+1, err)
	case errors.As(err, &derr):
		log.Fatalf("[-] Длительность разошлась на этапе %q: %v", derr.Stage, err)
	case errors.As(err, &serr):
		log.Fatalf("[-] Внешний сервис %s недоступен: %v", serr.Service, err)
	default:
		log.Fatalf("[-] Ошибка: %v", err)
	}
}
