package demo

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/toyz/synapse/pkg/synapse"
	"github.com/toyz/synapse/pkg/synapse/schema"
)

// CatsController serves the /cats resource
type CatsController struct {
	Store *CatStore `inject:""`
}

const catsRoutes = `
@Controller("/cats") @UseFilters(catNotFound) {
	@Get() List(@Query("breed", trim) breed, @Query("offset", zero, int, nonNegative) offset, @Query("limit", zero, int, nonNegative) limit)
	@Get("/:id") FindOne(@Param("id", uuid) id)
	@Post() Create(@Body(createCat) dto)
	@Patch("/:id") Update(@Param("id", uuid) id, @Body(updateCat) dto)
	@Delete("/:id") @UseInterceptors(noStore) Remove(@Param("id", uuid) id)
}
`

func (c *CatsController) List(breed string, offset, limit int) []Cat {
	return c.Store.List(breed, offset, limit)
}

func (c *CatsController) FindOne(id uuid.UUID) (Cat, error) {
	return c.Store.Get(id)
}

func (c *CatsController) Create(dto CreateCatDto) *synapse.Response {
	cat := c.Store.Create(dto)
	return synapse.Created(cat).WithHeader("Location", "/cats/"+cat.ID.String())
}

func (c *CatsController) Update(id uuid.UUID, dto UpdateCatDto) (Cat, error) {
	return c.Store.Update(id, dto)
}

func (c *CatsController) Remove(id uuid.UUID) (*synapse.Response, error) {
	if err := c.Store.Delete(id); err != nil {
		return nil, err
	}
	return synapse.NoContent(), nil
}

// catNotFound turns store misses into 404s
var catNotFound = synapse.CatchFunc(func(err *CatNotFoundError, _ *synapse.ExecutionContext) (*synapse.Response, error) {
	return synapse.ErrorResponse(synapse.ErrNotFound(err.Error())), nil
})

// nonNegative rejects negative paging values
var nonNegative = synapse.PipeFunc(func(value any, meta synapse.ArgumentMetadata) (any, error) {
	if n, ok := value.(int); ok && n < 0 {
		return nil, fmt.Errorf("%s must not be negative", meta.Data)
	}
	return value, nil
})

// noStore marks the handler's response as uncacheable
var noStore = synapse.InterceptorFunc(func(ec *synapse.ExecutionContext, next synapse.CallHandler) (any, error) {
	result, err := next.Handle()
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*synapse.Response)
	if !ok {
		resp = synapse.NewResponse(http.StatusOK, result)
	}
	return resp.WithHeader("Cache-Control", "no-store"), nil
})

func catsController() (*synapse.ControllerDef, error) {
	updateCat, err := schema.JSONAs[UpdateCatDto]("update-cat.json", updateCatSchema)
	if err != nil {
		return nil, err
	}

	return synapse.Annotate[*CatsController](catsRoutes, synapse.Symbols{
		"trim":        synapse.TrimPipe{},
		"zero":        synapse.DefaultValuePipe{Value: "0"},
		"int":         synapse.ParseIntPipe{},
		"nonNegative": nonNegative,
		"uuid":        synapse.ParseUUIDPipe{},
		"createCat":   schema.Struct[CreateCatDto](),
		"updateCat":   updateCat,
		"catNotFound": catNotFound,
		"noStore":     noStore,
	})
}
