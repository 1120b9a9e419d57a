package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Fees API",
        "description": "Fee and payment ledger service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Fees", "description": "Fee ledger and payment recording"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/fees": {
            "get": {
                "tags": ["Fees"],
                "summary": "List fees",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "PARTIAL", "PAID", "OVERDUE"]},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Fees"],
                "summary": "Create fee record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFeeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Fee already exists for student and academic year"}
                }
            }
        },
        "/fees/payment": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a payment against a fee",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Fee not found"}
                }
            }
        },
        "/fees/export": {
            "get": {
                "tags": ["Fees"],
                "summary": "Export the fee ledger as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV document"}
                }
            }
        },
        "/fees/report": {
            "get": {
                "tags": ["Fees"],
                "summary": "Fee collection report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "PARTIAL", "PAID", "OVERDUE"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Fetch a fee with its payments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Fee not found"}
                }
            },
            "put": {
                "tags": ["Fees"],
                "summary": "Partially update a fee",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateFeeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Fee not found"}
                }
            },
            "delete": {
                "tags": ["Fees"],
                "summary": "Delete a fee",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Fee has recorded payments"}
                }
            }
        },
        "/students/{id}/payments": {
            "get": {
                "tags": ["Fees"],
                "summary": "List a student's payment history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/payments/{id}/receipt": {
            "get": {
                "tags": ["Fees"],
                "summary": "Issue a fresh receipt download token for a payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Payment not found"}
                }
            }
        },
        "/receipts/{token}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Download a receipt by signed token",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Receipt PDF"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Fee": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "academic_year": {"type": "string"},
                "tuition": {"type": "number"},
                "admission": {"type": "number"},
                "examination": {"type": "number"},
                "library": {"type": "number"},
                "sports": {"type": "number"},
                "transport": {"type": "number"},
                "hostel": {"type": "number"},
                "other": {"type": "number"},
                "total_amount": {"type": "number"},
                "paid_amount": {"type": "number"},
                "discount": {"type": "number"},
                "due_date": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "PARTIAL", "PAID", "OVERDUE"]},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "FeeStructureInput": {
            "type": "object",
            "properties": {
                "tuition": {"type": "number"},
                "admission": {"type": "number"},
                "examination": {"type": "number"},
                "library": {"type": "number"},
                "sports": {"type": "number"},
                "transport": {"type": "number"},
                "hostel": {"type": "number"},
                "other": {"type": "number"}
            }
        },
        "Payment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fee_id": {"type": "string"},
                "student_id": {"type": "string"},
                "amount": {"type": "number"},
                "payment_date": {"type": "string"},
                "payment_method": {"type": "string", "enum": ["CASH", "CHEQUE", "ONLINE", "CARD", "BANK_TRANSFER"]},
                "transaction_id": {"type": "string"},
                "receipt_number": {"type": "string"},
                "remarks": {"type": "string"},
                "received_by": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "CreateFeeRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "academic_year": {"type": "string"},
                "fee_structure": {"$ref": "#/definitions/FeeStructureInput"},
                "total_amount": {"type": "number"},
                "discount": {"type": "number"},
                "due_date": {"type": "string"},
                "installments": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/InstallmentInput"}
                }
            },
            "required": ["student_id", "academic_year"]
        },
        "UpdateFeeRequest": {
            "type": "object",
            "properties": {
                "academic_year": {"type": "string"},
                "fee_structure": {"$ref": "#/definitions/FeeStructureInput"},
                "total_amount": {"type": "number"},
                "discount": {"type": "number"},
                "due_date": {"type": "string"}
            }
        },
        "InstallmentInput": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "due_date": {"type": "string"}
            },
            "required": ["amount"]
        },
        "RecordPaymentRequest": {
            "type": "object",
            "properties": {
                "fee_id": {"type": "string"},
                "amount": {"type": "number"},
                "payment_method": {"type": "string"},
                "transaction_id": {"type": "string"},
                "remarks": {"type": "string"}
            },
            "required": ["fee_id", "amount", "payment_method"]
        },
        "FeeReport": {
            "type": "object",
            "properties": {
                "totalFees": {"type": "number"},
                "totalCollected": {"type": "number"},
                "totalPending": {"type": "number"},
                "count": {"type": "integer"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
