// Package query turns list request parameters into Mongo filters, sorts and
// pages. Unknown filter and ordering fields are ignored.
package query

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"salescrm/internal/common/apperr"
	"salescrm/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultLimit int64 = 20
	MaxLimit     int64 = 200

	// MaxPage keeps (page-1)*limit inside int64
	MaxPage int64 = math.MaxInt64 / MaxLimit

	// maxRelatedMatches caps the ids one related search may add
	maxRelatedMatches int64 = 1000
)

var reserved = map[string]bool{"page": true, "limit": true, "search": true, "ordering": true}

type Kind int

const (
	Text Kind = iota
	Bool
	ObjectID
	Day
)

// Field describes one filterable query parameter. Path defaults to the
// parameter name.
type Field struct {
	Path string
	Kind Kind
}

// Related widens search to documents whose Field references a row of
// Collection matching the search on any of the Search fields.
type Related struct {
	Field      string
	Collection string
	Search     []string
}

type Spec struct {
	Filters      map[string]Field
	Search       []string
	Related      []Related
	Ordering     []string
	DefaultOrder []string
}

type ListParams struct {
	Page     int64
	Limit    int64
	Search   string
	Ordering string
	Filters  map[string]string
}

func (p ListParams) Skip() int64 {
	return (p.Page - 1) * p.Limit
}

// ParseListParams reads page, limit, search, ordering and treats every other
// query parameter as a candidate filter.
func ParseListParams(c *fiber.Ctx) ListParams {
	p := ListParams{
		Page:     utils.ParseInt64(c.Query("page"), 1),
		Limit:    utils.ParseInt64(c.Query("limit"), DefaultLimit),
		Search:   strings.TrimSpace(c.Query("search")),
		Ordering: c.Query("ordering"),
		Filters:  map[string]string{},
	}
	for k, v := range c.Queries() {
		if !reserved[k] && v != "" {
			p.Filters[k] = v
		}
	}
	return p.Normalize()
}

// Normalize clamps page and limit into range
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Filters == nil {
		p.Filters = map[string]string{}
	}
	return p
}

// Filter builds the Mongo filter for p. Values that cannot be converted to
// the field's kind are a validation error.
func (s Spec) Filter(p ListParams) (bson.M, error) {
	filter := bson.M{}
	fe := apperr.FieldErrors{}

	for param, raw := range p.Filters {
		field, ok := s.Filters[param]
		if !ok {
			continue
		}
		path := field.Path
		if path == "" {
			path = param
		}

		switch field.Kind {
		case Bool:
			b, ok := utils.ParseBool(raw)
			if !ok {
				fe.Add(param, "must be true or false")
				continue
			}
			filter[path] = b
		case ObjectID:
			oid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				fe.Add(param, "must be a valid id")
				continue
			}
			filter[path] = oid
		case Day:
			d, err := utils.ParseDay(raw)
			if err != nil {
				fe.Add(param, "must be a date in YYYY-MM-DD format")
				continue
			}
			filter[path] = d
		default:
			filter[path] = raw
		}
	}

	if err := fe.Err(); err != nil {
		return nil, err
	}

	if p.Search != "" && len(s.Search) > 0 {
		filter["$or"] = anyOf(s.Search, searchPattern(p.Search))
	}

	return filter, nil
}

func searchPattern(search string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
}

func anyOf(fields []string, pattern primitive.Regex) bson.A {
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return or
}

// AddSearchMatch ORs "field in ids" into the search clause of filter. An
// empty ids list leaves filter unchanged.
func AddSearchMatch(filter bson.M, field string, ids []primitive.ObjectID) {
	if len(ids) == 0 {
		return
	}
	or, _ := filter["$or"].(bson.A)
	filter["$or"] = append(or, bson.M{field: bson.M{"$in": ids}})
}

// searchRelated looks up each related collection and widens the search
// clause of filter with the matching references.
func (s Spec) searchRelated(ctx context.Context, db *mongo.Database, search string, filter bson.M) error {
	pattern := searchPattern(search)
	for _, rel := range s.Related {
		opts := options.Find().SetProjection(bson.M{"_id": 1}).SetLimit(maxRelatedMatches)
		cursor, err := db.Collection(rel.Collection).Find(ctx, bson.M{"$or": anyOf(rel.Search, pattern)}, opts)
		if err != nil {
			return err
		}
		var rows []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.All(ctx, &rows); err != nil {
			return err
		}
		ids := make([]primitive.ObjectID, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		AddSearchMatch(filter, rel.Field, ids)
	}
	return nil
}

// Sort parses a comma separated ordering ("-amount,name"). Fields outside
// s.Ordering are dropped; when nothing valid remains DefaultOrder applies.
// _id is appended as a tiebreaker so pages are stable.
func (s Spec) Sort(ordering string) bson.D {
	allowed := make(map[string]bool, len(s.Ordering))
	for _, f := range s.Ordering {
		allowed[f] = true
	}

	sort := bson.D{}
	for _, term := range strings.Split(ordering, ",") {
		term = strings.TrimSpace(term)
		dir := 1
		if strings.HasPrefix(term, "-") {
			dir = -1
			term = term[1:]
		}
		if term == "" || !allowed[term] {
			continue
		}
		sort = append(sort, bson.E{Key: term, Value: dir})
	}

	if len(sort) == 0 {
		for _, term := range s.DefaultOrder {
			if strings.HasPrefix(term, "-") {
				sort = append(sort, bson.E{Key: term[1:], Value: -1})
			} else {
				sort = append(sort, bson.E{Key: term, Value: 1})
			}
		}
	}

	for _, e := range sort {
		if e.Key == "_id" {
			return sort
		}
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

type Page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
}

// Find runs a filtered, sorted, paginated query and decodes into T
func Find[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D, p ListParams) (*Page[T], error) {
	p = p.Normalize()

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(sort).SetSkip(p.Skip()).SetLimit(p.Limit)
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	return &Page[T]{Data: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// List is Find driven by a Spec
func List[T any](ctx context.Context, coll *mongo.Collection, spec Spec, p ListParams) (*Page[T], error) {
	filter, err := spec.Filter(p)
	if err != nil {
		return nil, err
	}
	if p.Search != "" && len(spec.Related) > 0 {
		if err := spec.searchRelated(ctx, coll.Database(), p.Search, filter); err != nil {
			return nil, err
		}
	}
	return Find[T](ctx, coll, filter, spec.Sort(p.Ordering), p)
}

// Bucket is one row of a grouped count
type Bucket struct {
	Key   string `bson:"_id" json:"key"`
	Count int64  `bson:"count" json:"count"`
}

// As renders the bucket with the grouped field's own name as key
func (b Bucket) As(field string) map[string]interface{} {
	return map[string]interface{}{field: b.Key, "count": b.Count}
}

// CountBy groups documents matching filter by field, most frequent first.
// limit <= 0 returns every group.
func CountBy(ctx context.Context, coll *mongo.Collection, field string, filter bson.M, limit int64) ([]Bucket, error) {
	if filter == nil {
		filter = bson.M{}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": bson.M{"$ifNull": bson.A{"$" + field, ""}}, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	buckets := make([]Bucket, 0)
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// Buckets converts grouped counts into the list shape the API returns
func Buckets(bs []Bucket, field string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.As(field))
	}
	return out
}

// Times returns the values of one datetime field for the matching documents
func Times(ctx context.Context, coll *mongo.Collection, field string, filter bson.M) ([]time.Time, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.M{field: 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]time.Time, 0)
	for cursor.Next(ctx) {
		rv, err := cursor.Current.LookupErr(field)
		if err != nil {
			continue
		}
		if t, ok := rv.TimeOK(); ok {
			out = append(out, t.UTC())
		}
	}
	return out, cursor.Err()
}
