package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cinesync/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 9,
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 25,
	}
	defaultVolume = configVar[int]{
		envKey:       "SERVER_DEFAULT_VOLUME",
		flagKey:      "default-volume",
		defaultValue: 50,
	}
	sendQueueSize = configVar[int]{
		envKey:       "SERVER_SEND_QUEUE_SIZE",
		flagKey:      "send-queue-size",
		defaultValue: 64,
	}
	roomExpiration = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_EXPIRATION",
		flagKey:      "room-expiration",
		defaultValue: 24 * 14 * time.Hour,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of members in a room")
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, "Maximum number of videos in the queue")
	pflag.Int(defaultVolume.flagKey, defaultVolume.defaultValue, "Player volume of a new room")
	pflag.Int(sendQueueSize.flagKey, sendQueueSize.defaultValue, "Outbound message queue size per connection")
	pflag.Duration(roomExpiration.flagKey, roomExpiration.defaultValue, "Idle room state expiration")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(playlistLimit.flagKey, playlistLimit.envKey)
	viper.BindEnv(defaultVolume.flagKey, defaultVolume.envKey)
	viper.BindEnv(sendQueueSize.flagKey, sendQueueSize.envKey)
	viper.BindEnv(roomExpiration.flagKey, roomExpiration.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(playlistLimit.flagKey, playlistLimit.defaultValue)
	viper.SetDefault(defaultVolume.flagKey, defaultVolume.defaultValue)
	viper.SetDefault(sendQueueSize.flagKey, sendQueueSize.defaultValue)
	viper.SetDefault(roomExpiration.flagKey, roomExpiration.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	config := &app.AppConfig{
		Host:           viper.GetString(host.flagKey),
		Port:           viper.GetInt(port.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		MembersLimit:   viper.GetInt(membersLimit.flagKey),
		PlaylistLimit:  viper.GetInt(playlistLimit.flagKey),
		DefaultVolume:  viper.GetInt(defaultVolume.flagKey),
		SendQueueSize:  viper.GetInt(sendQueueSize.flagKey),
		RoomExpiration: viper.GetDuration(roomExpiration.flagKey),
		RedisHost:      viper.GetString(redisHost.flagKey),
		RedisPort:      viper.GetInt(redisPort.flagKey),
		RedisPassword:  viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
