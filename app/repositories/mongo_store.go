package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/pkg/logger"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	usersCollection    = "users"
)

// MongoStore is the document Store. With transactions enabled a unit of
// work runs in a session transaction (replica set required); otherwise
// reservations made inside it are released again when it fails.
type MongoStore struct {
	db           *mongo.Database
	transactions bool
	journal      *reservationJournal
}

func NewMongoStore(db *mongo.Database, transactions bool) *MongoStore {
	return &MongoStore{db: db, transactions: transactions}
}

func (s *MongoStore) Products() ProductRepository {
	return &mongoProducts{col: s.db.Collection(productsCollection), journal: s.journal}
}

func (s *MongoStore) Orders() OrderRepository {
	return &mongoOrders{col: s.db.Collection(ordersCollection)}
}

func (s *MongoStore) Users() UserRepository {
	return &mongoUsers{col: s.db.Collection(usersCollection)}
}

func (s *MongoStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.journal != nil {
		return fn(ctx, s)
	}

	if s.transactions {
		sess, err := s.db.Client().StartSession()
		if err != nil {
			return fmt.Errorf("repositories: start session: %w", err)
		}
		defer sess.EndSession(ctx)

		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc, s)
		})
		return err
	}

	tx := &MongoStore{db: s.db, journal: &reservationJournal{}}
	if err := fn(ctx, tx); err != nil {
		tx.journal.compensate(s.Products())
		return err
	}
	return nil
}

// EnsureIndexes creates the indexes the queries and uniqueness rules rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
			{Keys: bson.D{{Key: "featured", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "orderStatus", Value: 1}}},
			{
				Keys:    bson.D{{Key: "gatewayPaymentId", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
	}
	for name, idx := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("repositories: indexes on %s: %w", name, err)
		}
	}
	return nil
}

// reservationJournal records decrements made outside a real transaction.
type reservationJournal struct {
	mu    sync.Mutex
	lines []StockLine
}

func (j *reservationJournal) record(lines []StockLine) {
	j.mu.Lock()
	j.lines = append(j.lines, lines...)
	j.mu.Unlock()
}

func (j *reservationJournal) compensate(products ProductRepository) {
	j.mu.Lock()
	lines := j.lines
	j.lines = nil
	j.mu.Unlock()
	if len(lines) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := products.Release(ctx, lines); err != nil {
		logger.Error("repositories: compensating stock release failed", "lines", len(lines), "error", err)
	}
}

func mongoNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// ── products ─────────────────────────────────────────────────────────────────

type mongoProducts struct {
	col     *mongo.Collection
	journal *reservationJournal
}

var mongoProductSorts = map[string]bson.D{
	SortNewest:    {{Key: "createdAt", Value: -1}},
	SortPriceAsc:  {{Key: "price", Value: 1}},
	SortPriceDesc: {{Key: "price", Value: -1}},
	SortNameAsc:   {{Key: "name", Value: 1}},
	SortNameDesc:  {{Key: "name", Value: -1}},
}

func (f ProductFilter) mongoFilter() bson.M {
	q := bson.M{}
	if c := f.category(); c != "" {
		q["category"] = c
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		q["price"] = price
	}
	if f.Search != "" {
		q["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	if f.InStock {
		q["inStock"] = true
	}
	if f.Featured {
		q["featured"] = true
	}
	return q
}

func (r *mongoProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := f.mongoFilter()
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("repositories: count products: %w", err)
	}

	sort, ok := mongoProductSorts[f.Sort]
	if !ok {
		sort = mongoProductSorts[SortNewest]
	}
	page := f.Page
	if page.Limit == 0 {
		page = orm.NewPagination(page.Page, page.Limit, 0)
	}

	opts := options.Find().
		SetSort(append(sort, bson.E{Key: "_id", Value: 1})).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("repositories: list products: %w", err)
	}
	out := []models.Product{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("repositories: decode products: %w", err)
	}
	return out, total, nil
}

func (r *mongoProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mongoNotFound(err)
	}
	return &p, nil
}

func (r *mongoProducts) Create(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = models.NewID()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.SyncStock()
	if p.Images == nil {
		p.Images = []models.Image{}
	}
	if _, err := r.col.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: create product: %w", err)
	}
	return nil
}

func (r *mongoProducts) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = time.Now().UTC()
	p.SyncStock()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("repositories: update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProducts) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("repositories: delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProducts) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

// stockPipeline adjusts stock by delta and recomputes inStock in the same
// update.
func stockPipeline(delta int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "stock", Value: bson.D{{Key: "$add", Value: bson.A{"$stock", delta}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "inStock", Value: bson.D{{Key: "$gt", Value: bson.A{"$stock", 0}}}},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
}

func (r *mongoProducts) Reserve(ctx context.Context, lines []StockLine) error {
	lines = mergeLines(lines)

	var done []StockLine
	for _, l := range lines {
		res, err := r.col.UpdateOne(ctx,
			bson.M{"_id": l.ProductID, "stock": bson.M{"$gte": l.Quantity}},
			stockPipeline(-l.Quantity),
		)
		if err == nil && res.MatchedCount == 1 {
			done = append(done, l)
			continue
		}

		if err == nil {
			err = r.explainShortfall(ctx, l)
		} else {
			err = fmt.Errorf("repositories: reserve %s: %w", l.ProductID, err)
		}
		if mongo.SessionFromContext(ctx) == nil && len(done) > 0 {
			if relErr := r.Release(context.WithoutCancel(ctx), done); relErr != nil {
				logger.WithCtx(ctx).Error("repositories: undo partial reservation failed", "error", relErr)
			}
		}
		return err
	}

	if r.journal != nil {
		r.journal.record(done)
	}
	return nil
}

func (r *mongoProducts) explainShortfall(ctx context.Context, l StockLine) error {
	var p models.Product
	err := r.col.FindOne(ctx, bson.M{"_id": l.ProductID},
		options.FindOne().SetProjection(bson.M{"name": 1, "stock": 1})).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &MissingProductError{ProductID: l.ProductID}
		}
		return fmt.Errorf("repositories: reserve %s: %w", l.ProductID, err)
	}
	return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: l.Quantity}
}

func (r *mongoProducts) Release(ctx context.Context, lines []StockLine) error {
	for _, l := range mergeLines(lines) {
		if _, err := r.col.UpdateOne(ctx, bson.M{"_id": l.ProductID}, stockPipeline(l.Quantity)); err != nil {
			return fmt.Errorf("repositories: release %s: %w", l.ProductID, err)
		}
	}
	return nil
}

// ── orders ───────────────────────────────────────────────────────────────────

type mongoOrders struct {
	col *mongo.Collection
}

func (r *mongoOrders) Create(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = models.NewID()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: create order: %w", err)
	}
	return nil
}

func (r *mongoOrders) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := r.col.FindOne(ctx, filter).Decode(&o); err != nil {
		return nil, mongoNotFound(err)
	}
	return &o, nil
}

func (r *mongoOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoOrders) FindByGatewayPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"gatewayPaymentId": paymentID})
}

func (r *mongoOrders) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repositories: find orders: %w", err)
	}
	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("repositories: decode orders: %w", err)
	}
	return out, nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}

func (r *mongoOrders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return r.find(ctx, bson.M{"user": userID}, options.Find().SetSort(newestFirst))
}

func (r *mongoOrders) List(ctx context.Context, page orm.Pagination) ([]models.Order, int64, error) {
	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("repositories: count orders: %w", err)
	}
	opts := options.Find().SetSort(newestFirst)
	if page.Limit > 0 {
		opts.SetSkip(int64(page.Offset())).SetLimit(int64(page.Limit))
	}
	out, err := r.find(ctx, bson.M{}, opts)
	return out, total, err
}

func (r *mongoOrders) Recent(ctx context.Context, n int) ([]models.Order, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(newestFirst).SetLimit(int64(n)))
}

func (r *mongoOrders) UpdateStatus(ctx context.Context, o *models.Order, from string) error {
	o.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"orderStatus":   o.OrderStatus,
		"paymentStatus": o.PaymentStatus,
		"orderNotes":    o.OrderNotes,
		"updatedAt":     o.UpdatedAt,
	}
	if o.DeliveredAt != nil {
		set["deliveredAt"] = o.DeliveredAt
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": o.ID, "orderStatus": from}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("repositories: update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (r *mongoOrders) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *mongoOrders) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$orderStatus"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: count by status: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("repositories: count by status: %w", err)
	}

	out := make(map[string]int64, len(models.OrderStatuses))
	for _, s := range models.OrderStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

func (r *mongoOrders) Revenue(ctx context.Context) (float64, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "orderStatus", Value: bson.D{{Key: "$ne", Value: models.StatusCancelled}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	})
	if err != nil {
		return 0, fmt.Errorf("repositories: revenue: %w", err)
	}
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("repositories: revenue: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// ── users ────────────────────────────────────────────────────────────────────

type mongoUsers struct {
	col *mongo.Collection
}

func (r *mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mongoNotFound(err)
	}
	return &u, nil
}

func (r *mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": normaliseEmail(email)})
}

func (r *mongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.Email = normaliseEmail(u.Email)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: create user: %w", err)
	}
	return nil
}

func (r *mongoUsers) Update(ctx context.Context, u *models.User) error {
	u.Email = normaliseEmail(u.Email)
	u.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("repositories: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("repositories: delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUsers) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{"role": role}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("repositories: list users: %w", err)
	}
	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("repositories: decode users: %w", err)
	}
	return out, nil
}

func (r *mongoUsers) CountByRole(ctx context.Context, role string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"role": role})
}
