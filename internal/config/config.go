package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yaml"

// MustLoad читает конфиг из YAML-файла и переменных окружения.
// Путь к файлу берётся из CONFIG_FILEPATH/CONFIG_FILENAME, иначе config/config.yaml.
func MustLoad() *Config {
	// .env необязателен
	_ = godotenv.Load()

	configPath := defaultConfigPath
	dir, name := os.Getenv("CONFIG_FILEPATH"), os.Getenv("CONFIG_FILENAME")
	if name != "" {
		configPath = filepath.Join(dir, name)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return cfg
}

// Load читает конфиг по указанному пути.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", configPath, err)
	}

	cfg.configPath = configPath

	return &cfg, nil
}

// ModelName возвращает текущую модель AI.
func (c *Config) ModelName() string {
	c.aiMu.RLock()
	defer c.aiMu.RUnlock()
	return c.BotConfig.AI.ModelName
}

// SystemPrompt возвращает текущий системный промпт AI.
func (c *Config) SystemPrompt() string {
	c.aiMu.RLock()
	defer c.aiMu.RUnlock()
	return c.BotConfig.AI.SystemRolePrompt
}

// SetModelName меняет модель AI и сохраняет в файл конфига только ключ bot.AI.modelName.
// Остальной файл, включая комментарии, не трогается; значения из env в файл не попадают.
func (c *Config) SetModelName(model string) error {
	c.aiMu.Lock()
	defer c.aiMu.Unlock()

	if c.configPath == "" {
		return fmt.Errorf("config path is empty")
	}
	if err := writeYAMLKey(c.configPath, []string{"bot", "AI", "modelName"}, model); err != nil {
		return err
	}

	c.BotConfig.AI.ModelName = model
	return nil
}

// writeYAMLKey заменяет (или добавляет) одно скалярное значение в YAML-файле.
func writeYAMLKey(path string, keys []string, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config %s: root is not a mapping", path)
	}

	node := doc.Content[0]
	for i, key := range keys {
		last := i == len(keys)-1
		child := mappingValue(node, key)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			if last {
				child = &yaml.Node{Kind: yaml.ScalarNode}
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, child)
		}
		if last {
			if child.Kind != yaml.ScalarNode {
				return fmt.Errorf("config %s: %s is not a scalar", path, strings.Join(keys, "."))
			}
			child.Tag = "!!str"
			child.Style = 0
			child.Value = value
			break
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("config %s: %s is not a mapping", path, key)
		}
		node = child
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(path, out, mode); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// ReadPromptFromFile подгружает системный промпт для AI, если указан файл.
func (c *Config) ReadPromptFromFile() error {
	if c.BotConfig.AI.PromptFileName == "" {
		return nil
	}

	path := c.PromptPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read prompt file %s: %w", path, err)
	}

	c.aiMu.Lock()
	c.BotConfig.AI.SystemRolePrompt = string(data)
	c.aiMu.Unlock()

	return nil
}

// PromptPath возвращает путь к файлу промпта или "", если файл не настроен.
func (c *Config) PromptPath() string {
	if c.BotConfig.AI.PromptFileName == "" {
		return ""
	}
	return filepath.Join(c.BotConfig.AI.PromptFilePath, c.BotConfig.AI.PromptFileName)
}

// Location возвращает часовой пояс для расчёта "сегодня", "эта неделя" и т.д.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode,
	)
}

func (a AIConfig) GetTimeout() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

func (s ScraperConfig) GetTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}
