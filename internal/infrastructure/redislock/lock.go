// Package redislock lock distribuido sobre Redis (SET NX con TTL) para el job de conversión.
package redislock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-bom/internal/application/conversion"
	"github.com/redis/go-redis/v9"
)

var _ conversion.JobLock = (*Lock)(nil)

// DefaultKey clave del lock de conversión.
const DefaultKey = "inventory:conversion:lock"

// DefaultTTL vencimiento del lock; se renueva mientras el job corre.
const DefaultTTL = 30 * time.Second

// Solo el dueño (mismo token) puede renovar o liberar.
var (
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Lock implementa conversion.JobLock. Mientras está tomado, una goroutine renueva el TTL
// cada TTL/3; si el proceso muere, el lock vence solo.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu     sync.Mutex
	token  string
	cancel context.CancelFunc
	done   chan struct{}
}

// New crea el lock sobre un cliente existente. key/ttl vacíos usan los valores por defecto.
func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// Connect crea un cliente a partir de una URL redis:// y verifica la conexión.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// TryLock intenta tomar el lock con SETNX. false si otra instancia lo tiene.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" {
		return false, nil
	}
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}
	l.token = token
	refreshCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.refresh(refreshCtx, token, l.done)
	return true, nil
}

// Unlock detiene la renovación y borra la clave si sigue siendo nuestra.
func (l *Lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token, cancel, done := l.token, l.cancel, l.done
	l.token, l.cancel, l.done = "", nil, nil
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	cancel()
	<-done
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", l.key, err)
	}
	return nil
}

func (l *Lock) refresh(ctx context.Context, token string, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Un fallo puntual se reintenta en el siguiente tick; si persiste el lock vence.
			_ = refreshScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Err()
		}
	}
}
