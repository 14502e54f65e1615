package odds

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Validator consulta as odds correntes de um trend no cache Redis.
type Validator struct {
	Rdb *redis.Client
}

func NewValidator(r *redis.Client) *Validator { return &Validator{Rdb: r} }

// Espera chave "odds:{trendID}:{side}" => valor string com a odd, ex: "2.50"
func (v *Validator) CurrentOdds(ctx context.Context, trendID, side string) (string, error) {
	key := fmt.Sprintf("odds:%s:%s", trendID, side)
	val, err := v.Rdb.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}
