package http

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/mapply/mapply/internal/core/domain"
)

// int64Scalar carries BIGSERIAL ids; the built-in Int is limited to 32 bits.
var int64Scalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Int64",
	Description: "A signed 64-bit integer.",
	Serialize:   coerceInt64,
	ParseValue:  coerceInt64,
	ParseLiteral: func(value ast.Value) interface{} {
		v, ok := value.(*ast.IntValue)
		if !ok {
			return nil
		}
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil
		}
		return n
	},
})

func coerceInt64(value interface{}) interface{} {
	switch v := value.(type) {
	case int64:
		return v
	case *int64:
		if v == nil {
			return nil
		}
		return *v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		// JSON variables arrive as float64.
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return nil
		}
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return n
	}
	return nil
}

// buildSchema creates the read-only GraphQL schema over map events.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	positionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Position",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"lng": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	mapEventType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapEvent",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(int64Scalar)},
			"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"position":    &graphql.Field{Type: graphql.NewNonNull(positionType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"mapEvents": &graphql.Field{
				Type:        graphql.NewList(mapEventType),
				Description: "List all map events",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.MapEvents.List(p.Context)
				},
			},
			"mapEvent": &graphql.Field{
				Type:        mapEventType,
				Description: "Get a map event by ID, or null if it does not exist",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(int64Scalar)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int64)
					event, err := deps.MapEvents.Get(p.Context, id)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, errors.New("storage operation failed")
					}
					return event, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return emptyStatus(c, fiber.StatusBadRequest)
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
