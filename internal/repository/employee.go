package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/jackc/pgx/v5"
)

// Query names double as the query_type label of the DB metrics.
const (
	QueryInsertEmployee             = "insert_employee"
	QueryUpdateEmployee             = "update_employee"
	QueryFindAllEmployees           = "find_all_employees"
	QueryFindEmployeeByID           = "find_employee_by_id"
	QueryFindEmployeeByEmail        = "find_employee_by_email"
	QueryDeleteEmployeeByID         = "delete_employee_by_id"
	QueryFindByJPQL                 = "find_by_jpql"
	QueryFindByJPQLNamedParams      = "find_by_jpql_named_params"
	QueryFindByNativeSQL            = "find_by_native_sql"
	QueryFindByNativeSQLNamedParams = "find_by_native_sql_named_params"
)

// EmployeeEntity maps the Employee entity onto the employees table.
var EmployeeEntity = Entity{
	Name:  "Employee",
	Table: "employees",
	Fields: []FieldMapping{
		{Field: "id", Column: "id"},
		{Field: "firstName", Column: "first_name"},
		{Field: "lastName", Column: "last_name"},
		{Field: "email", Column: "email"},
	},
}

// EmployeeQueries declares every query the employee store runs.
var EmployeeQueries = []QueryDef{
	{
		Name:     QueryInsertEmployee,
		Template: "INSERT INTO employees (first_name, last_name, email) VALUES (?1, ?2, ?3) RETURNING id",
		Style:    StyleNative,
		Binding:  BindPositional,
		Shape:    ShapeOne,
	},
	{
		Name:     QueryUpdateEmployee,
		Template: "UPDATE employees SET first_name = :firstName, last_name = :lastName, email = :email WHERE id = :id",
		Style:    StyleNative,
		Binding:  BindNamed,
		Shape:    ShapeExec,
	},
	{
		Name:     QueryFindAllEmployees,
		Template: "SELECT e FROM Employee e ORDER BY e.id",
		Style:    StyleEntity,
		Binding:  BindPositional,
		Shape:    ShapeMany,
	},
	{
		Name:     QueryFindEmployeeByID,
		Template: "SELECT e FROM Employee e WHERE e.id = ?1",
		Style:    StyleEntity,
		Binding:  BindPositional,
		Shape:    ShapeOptional,
	},
	{
		Name:     QueryFindEmployeeByEmail,
		Template: "SELECT e FROM Employee e WHERE e.email = :email",
		Style:    StyleEntity,
		Binding:  BindNamed,
		Shape:    ShapeOptional,
	},
	{
		Name:     QueryDeleteEmployeeByID,
		Template: "DELETE FROM employees WHERE id = ?1",
		Style:    StyleNative,
		Binding:  BindPositional,
		Shape:    ShapeExec,
	},
	{
		Name:     QueryFindByJPQL,
		Template: "SELECT e FROM Employee e WHERE e.firstName = ?1 and e.lastName = ?2",
		Style:    StyleEntity,
		Binding:  BindPositional,
		Shape:    ShapeOne,
	},
	{
		Name:     QueryFindByJPQLNamedParams,
		Template: "SELECT e FROM Employee e WHERE e.firstName = :firstName and e.lastName = :lastName",
		Style:    StyleEntity,
		Binding:  BindNamed,
		Shape:    ShapeOne,
	},
	{
		Name:     QueryFindByNativeSQL,
		Template: "SELECT * FROM employees WHERE first_name = ?1 and last_name = ?2",
		Style:    StyleNative,
		Binding:  BindPositional,
		Shape:    ShapeOne,
	},
	{
		Name:     QueryFindByNativeSQLNamedParams,
		Template: "SELECT * FROM employees WHERE first_name = :firstName and last_name = :lastName",
		Style:    StyleNative,
		Binding:  BindNamed,
		Shape:    ShapeOne,
	},
}

var employeeQueries = MustCompileQueries(EmployeeEntity, EmployeeQueries)

// Save inserts the employee when it has no id yet and updates the row with its id otherwise.
// Updating an id that is not in the table fails with ErrNotFound; nothing is inserted.
func (r *Repository) Save(ctx context.Context, employee models.Employee) (models.Employee, error) {
	if employee.IsNew() {
		return r.insert(ctx, employee)
	}
	return r.update(ctx, employee)
}

func (r *Repository) insert(ctx context.Context, employee models.Employee) (saved models.Employee, err error) {
	defer r.observe(QueryInsertEmployee, time.Now(), &err)

	query := r.queries.mustGet(QueryInsertEmployee)
	args, err := query.Bind(employee.FirstName, employee.LastName, employee.Email)
	if err != nil {
		return models.Employee{}, err
	}

	err = r.inTx(ctx, pgx.ReadWrite, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query.SQL, args...).Scan(&employee.ID)
	})
	if err != nil {
		return models.Employee{}, fmt.Errorf("failed to save employee: %w", translateError(err))
	}

	return employee, nil
}

func (r *Repository) update(ctx context.Context, employee models.Employee) (saved models.Employee, err error) {
	defer r.observe(QueryUpdateEmployee, time.Now(), &err)

	query := r.queries.mustGet(QueryUpdateEmployee)
	args, err := query.Bind(pgx.NamedArgs{
		"id":        employee.ID,
		"firstName": employee.FirstName,
		"lastName":  employee.LastName,
		"email":     employee.Email,
	})
	if err != nil {
		return models.Employee{}, err
	}

	err = r.inTx(ctx, pgx.ReadWrite, func(tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctx, query.SQL, args...)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: id %d", ErrNotFound, employee.ID)
		}
		return nil
	})
	if err != nil {
		return models.Employee{}, fmt.Errorf("failed to update employee data: %w", translateError(err))
	}

	return employee, nil
}

// FindAll returns every employee in insertion order.
func (r *Repository) FindAll(ctx context.Context) (employees []models.Employee, err error) {
	defer r.observe(QueryFindAllEmployees, time.Now(), &err)

	employees, err = r.collect(ctx, QueryFindAllEmployees)
	if err != nil {
		return nil, fmt.Errorf("failed to find all employees: %w", err)
	}

	return employees, nil
}

// FindByID retrieves an employee by id. The boolean is false when no row has that id.
func (r *Repository) FindByID(ctx context.Context, identifier int64) (employee models.Employee, found bool, err error) {
	defer r.observe(QueryFindEmployeeByID, time.Now(), &err)

	employee, found, err = r.findOne(ctx, QueryFindEmployeeByID, identifier)
	if err != nil {
		return models.Employee{}, false, fmt.Errorf("failed to get employee by id: %w", err)
	}

	return employee, found, nil
}

// FindByEmail retrieves an employee by email. The comparison is case-sensitive.
func (r *Repository) FindByEmail(ctx context.Context, email string) (employee models.Employee, found bool, err error) {
	defer r.observe(QueryFindEmployeeByEmail, time.Now(), &err)

	employee, found, err = r.findOne(ctx, QueryFindEmployeeByEmail, pgx.NamedArgs{"email": email})
	if err != nil {
		return models.Employee{}, false, fmt.Errorf("failed to get employee by email: %w", err)
	}

	return employee, found, nil
}

// DeleteByID removes the employee with the given id. Deleting a missing id is not an error.
func (r *Repository) DeleteByID(ctx context.Context, identifier int64) (err error) {
	defer r.observe(QueryDeleteEmployeeByID, time.Now(), &err)

	query := r.queries.mustGet(QueryDeleteEmployeeByID)
	args, err := query.Bind(identifier)
	if err != nil {
		return err
	}

	err = r.inTx(ctx, pgx.ReadWrite, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, query.SQL, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", translateError(err))
	}

	return nil
}

// FindByJPQL looks an employee up by first and last name with an entity query and positional parameters.
func (r *Repository) FindByJPQL(ctx context.Context, firstName, lastName string) (models.Employee, error) {
	return r.findByNames(ctx, QueryFindByJPQL, firstName, lastName)
}

// FindByJPQLNamedParams looks an employee up by first and last name with an entity query and named parameters.
func (r *Repository) FindByJPQLNamedParams(ctx context.Context, firstName, lastName string) (models.Employee, error) {
	return r.findByNames(ctx, QueryFindByJPQLNamedParams, firstName, lastName)
}

// FindByNativeSQL looks an employee up by first and last name with native SQL and positional parameters.
func (r *Repository) FindByNativeSQL(ctx context.Context, firstName, lastName string) (models.Employee, error) {
	return r.findByNames(ctx, QueryFindByNativeSQL, firstName, lastName)
}

// FindByNativeSQLNamedParams looks an employee up by first and last name with native SQL and named parameters.
func (r *Repository) FindByNativeSQLNamedParams(
	ctx context.Context,
	firstName, lastName string,
) (models.Employee, error) {
	return r.findByNames(ctx, QueryFindByNativeSQLNamedParams, firstName, lastName)
}

// findByNames runs one of the name lookups. Zero matches fail with ErrNotFound and
// several matches with ErrAmbiguousMatch.
func (r *Repository) findByNames(
	ctx context.Context,
	name, firstName, lastName string,
) (employee models.Employee, err error) {
	defer r.observe(name, time.Now(), &err)

	var args []any
	if r.queries.mustGet(name).Binding == BindNamed {
		args = []any{pgx.NamedArgs{"firstName": firstName, "lastName": lastName}}
	} else {
		args = []any{firstName, lastName}
	}

	employee, _, err = r.findOne(ctx, name, args...)
	if err != nil {
		return models.Employee{}, fmt.Errorf("failed to get employee by names: %w", err)
	}

	return employee, nil
}

// findOne runs a single-row query and applies its shape: an optional query reports
// a missing row through the boolean, a ShapeOne query through ErrNotFound.
func (r *Repository) findOne(ctx context.Context, name string, args ...any) (models.Employee, bool, error) {
	employees, err := r.collect(ctx, name, args...)
	if err != nil {
		return models.Employee{}, false, err
	}

	switch {
	case len(employees) == 0:
		if r.queries.mustGet(name).Shape == ShapeOne {
			return models.Employee{}, false, ErrNotFound
		}
		return models.Employee{}, false, nil
	case len(employees) > 1:
		return models.Employee{}, false, fmt.Errorf("%w: %d employees matched", ErrAmbiguousMatch, len(employees))
	}

	return employees[0], true, nil
}

// collect runs a row-returning query in a read-only transaction.
func (r *Repository) collect(ctx context.Context, name string, args ...any) ([]models.Employee, error) {
	query := r.queries.mustGet(name)
	bound, err := query.Bind(args...)
	if err != nil {
		return nil, err
	}

	var employees []models.Employee
	err = r.inTx(ctx, pgx.ReadOnly, func(tx pgx.Tx) error {
		rows, queryErr := tx.Query(ctx, query.SQL, bound...)
		if queryErr != nil {
			return queryErr
		}
		employees, queryErr = pgx.CollectRows(rows, pgx.RowToStructByName[models.Employee])
		return queryErr
	})
	if err != nil {
		return nil, translateError(err)
	}

	return employees, nil
}

// observe records duration and outcome of a store operation.
func (r *Repository) observe(queryType string, startTime time.Time, err *error) {
	duration := time.Since(startTime).Seconds()
	r.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration)

	status := "success"
	if *err != nil {
		status = "failure"
	}
	r.metrics.StoreOperations.WithLabelValues(queryType, status).Inc()
}
