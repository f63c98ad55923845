package appcontext

import (
	"context"

	"github.com/RoyceAzure/lab/bookstore/internal/config"
	"github.com/RoyceAzure/lab/bookstore/internal/infra/producer"
	"github.com/RoyceAzure/lab/bookstore/internal/infra/producer/balancer"
	"github.com/RoyceAzure/lab/bookstore/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/bookstore/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/bookstore/internal/service"
	kafka_config "github.com/RoyceAzure/lab/rj_kafka/kafka/config"
	kafka_producer "github.com/RoyceAzure/lab/rj_kafka/kafka/producer"
	redis_cache "github.com/RoyceAzure/lab/rj_redis/pkg/cache/redis"
	"github.com/RoyceAzure/lab/rj_redis/pkg/redis_client"
)

const cachePrefix = "bookstore"

// ApplicationContext 聚合核心服務與基礎設施的組裝
// 金流閘道是外部協作者，由使用本核心的應用注入
type ApplicationContext struct {
	Cf             *config.Config
	DbDao          *db.DbDao
	OrderNotifier  *producer.OrderNotifier
	CartService    service.ICartService
	OrderService   service.IOrderService
	CatalogService *service.CatalogService

	kafkaProducer kafka_producer.Producer
}

func NewApplicationContext(cf *config.Config, gateway service.PaymentGateway) (*ApplicationContext, error) {
	app := &ApplicationContext{Cf: cf}

	conn, err := db.GetDbConn(cf.DbName, cf.DbHost, cf.DbPort, cf.DbUser, cf.DbPas)
	if err != nil {
		return nil, err
	}
	app.DbDao = db.NewDbDao(conn)
	if err := app.DbDao.InitMigrate(); err != nil {
		return nil, err
	}

	var productCache service.IProductCache
	if cf.RedisAddr != "" {
		client, err := redis_client.GetRedisClient(cf.RedisAddr, redis_client.WithPassword(cf.RedisPassword))
		if err != nil {
			return nil, err
		}
		productCache = redis_repo.NewProductCacheRepo(redis_cache.NewRedisCache(client, cachePrefix))
	}

	var notifier service.IOrderNotifier
	if brokers := cf.GetKafkaBrokers(); len(brokers) > 0 {
		kafkaCf := kafka_config.DefaultConfig()
		kafkaCf.Brokers = brokers
		kafkaCf.Topic = cf.OrderEventTopic
		kafkaCf.Balancer = balancer.NewOrderIDBalancer(cf.OrderEventPartitions)

		p, err := kafka_producer.New(kafkaCf)
		if err != nil {
			return nil, err
		}
		app.kafkaProducer = p
		app.OrderNotifier = producer.NewOrderNotifier(p)
		notifier = app.OrderNotifier
	}

	app.CartService = service.NewCartService(app.DbDao, gateway, cf.NetTermsDays)
	app.OrderService = service.NewOrderService(app.DbDao, gateway, notifier, cf.NetTermsDays)
	app.CatalogService = service.NewCatalogService(app.DbDao, productCache, cf.DisplayOrderMin, cf.DisplayOrderMax)

	return app, nil
}

func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	if app.kafkaProducer != nil {
		if err := app.kafkaProducer.Close(); err != nil {
			return err
		}
	}
	if app.DbDao != nil {
		sqlDB, err := app.DbDao.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
