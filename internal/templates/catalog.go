package templates

var catalog = []template{
	{
		name:     "school system",
		keywords: []string{"school system", "school"},
		schema: `
CREATE TABLE students (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT UNIQUE,
  grade_level INTEGER,
  enrollment_date DATE DEFAULT CURRENT_DATE
);

CREATE TABLE teachers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT UNIQUE NOT NULL,
  subject TEXT,
  hire_date DATE DEFAULT CURRENT_DATE
);

CREATE TABLE classes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  subject TEXT NOT NULL,
  teacher_id INTEGER,
  room_number TEXT,
  max_students INTEGER DEFAULT 30,
  FOREIGN KEY (teacher_id) REFERENCES teachers(id)
);

CREATE TABLE enrollments (
  student_id INTEGER,
  class_id INTEGER,
  enrollment_date DATE DEFAULT CURRENT_DATE,
  grade TEXT,
  PRIMARY KEY (student_id, class_id),
  FOREIGN KEY (student_id) REFERENCES students(id),
  FOREIGN KEY (class_id) REFERENCES classes(id)
);`,
		data: `
INSERT INTO teachers (first_name, last_name, email, subject) VALUES
  ('John', 'Smith', 'j.smith@school.edu', 'Mathematics'),
  ('Sarah', 'Johnson', 's.johnson@school.edu', 'English'),
  ('Mike', 'Brown', 'm.brown@school.edu', 'Science');

INSERT INTO students (first_name, last_name, email, grade_level) VALUES
  ('Alice', 'Wilson', 'alice.wilson@student.school.edu', 10),
  ('Bob', 'Davis', 'bob.davis@student.school.edu', 10),
  ('Carol', 'Miller', 'carol.miller@student.school.edu', 9);

INSERT INTO classes (name, subject, teacher_id, room_number) VALUES
  ('Algebra I', 'Mathematics', 1, '101'),
  ('English Literature', 'English', 2, '205'),
  ('Biology', 'Science', 3, '301');`,
		collections: []string{"students", "teachers", "classes", "enrollments"},
		documents: map[string]string{
			"students": `[
  {"firstName": "Alice", "lastName": "Wilson", "gradeLevel": 10, "email": "alice@school.edu"},
  {"firstName": "Bob", "lastName": "Davis", "gradeLevel": 10, "email": "bob@school.edu"}
]`,
			"teachers": `[
  {"firstName": "John", "lastName": "Smith", "subject": "Mathematics", "email": "j.smith@school.edu"}
]`,
		},
	},
	{
		name:     "library management",
		keywords: []string{"library management", "library"},
		schema: `
CREATE TABLE books (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  author TEXT NOT NULL,
  isbn TEXT UNIQUE,
  genre TEXT,
  publication_year INTEGER,
  copies_available INTEGER DEFAULT 1,
  total_copies INTEGER DEFAULT 1
);

CREATE TABLE members (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT UNIQUE,
  phone TEXT,
  membership_date DATE DEFAULT CURRENT_DATE,
  membership_type TEXT DEFAULT 'regular'
);

CREATE TABLE loans (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  book_id INTEGER NOT NULL,
  member_id INTEGER NOT NULL,
  loan_date DATE DEFAULT CURRENT_DATE,
  due_date DATE,
  return_date DATE,
  fine_amount DECIMAL(5,2) DEFAULT 0.00,
  FOREIGN KEY (book_id) REFERENCES books(id),
  FOREIGN KEY (member_id) REFERENCES members(id)
);`,
		data: `
INSERT INTO books (title, author, isbn, genre, publication_year, copies_available, total_copies) VALUES
  ('The Great Gatsby', 'F. Scott Fitzgerald', '978-0-7432-7356-5', 'Fiction', 1925, 3, 3),
  ('To Kill a Mockingbird', 'Harper Lee', '978-0-06-112008-4', 'Fiction', 1960, 2, 2),
  ('1984', 'George Orwell', '978-0-452-28423-4', 'Dystopian', 1949, 4, 4);

INSERT INTO members (first_name, last_name, email, phone, membership_type) VALUES
  ('Emma', 'Thompson', 'emma.t@email.com', '555-0101', 'premium'),
  ('James', 'Wilson', 'james.w@email.com', '555-0102', 'regular'),
  ('Lisa', 'Anderson', 'lisa.a@email.com', '555-0103', 'student');`,
		collections: []string{"books", "members", "loans"},
		documents: map[string]string{
			"books": `[
  {"title": "The Great Gatsby", "author": "F. Scott Fitzgerald", "genre": "Fiction", "copiesAvailable": 3},
  {"title": "1984", "author": "George Orwell", "genre": "Dystopian", "copiesAvailable": 4}
]`,
		},
	},
	{
		name:     "blog",
		keywords: []string{"blog"},
		schema: `
CREATE TABLE authors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  display_name TEXT NOT NULL,
  joined_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE posts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  author_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  body TEXT,
  published_at DATETIME,
  FOREIGN KEY (author_id) REFERENCES authors(id)
);

CREATE TABLE comments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  post_id INTEGER NOT NULL,
  commenter TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY (post_id) REFERENCES posts(id)
);`,
		data: `
INSERT INTO authors (username, display_name) VALUES
  ('ada', 'Ada Lovelace'),
  ('grace', 'Grace Hopper');

INSERT INTO posts (author_id, title, body) VALUES
  (1, 'Notes on the Analytical Engine', 'The engine weaves algebraic patterns.'),
  (2, 'Finding the first bug', 'It was a moth.');

INSERT INTO comments (post_id, commenter, body) VALUES
  (1, 'charles', 'Splendid work.'),
  (2, 'ada', 'A fine catch.');`,
		collections: []string{"authors", "posts", "comments"},
	},
	{
		name:     "ecommerce",
		keywords: []string{"ecommerce", "e-commerce", "online store"},
		schema: `
CREATE TABLE customers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT UNIQUE NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sku TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL,
  price DECIMAL(10,2) NOT NULL,
  stock INTEGER DEFAULT 0
);

CREATE TABLE orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customer_id INTEGER NOT NULL,
  status TEXT DEFAULT 'pending',
  ordered_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY (customer_id) REFERENCES customers(id)
);

CREATE TABLE order_items (
  order_id INTEGER NOT NULL,
  product_id INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price DECIMAL(10,2) NOT NULL,
  PRIMARY KEY (order_id, product_id),
  FOREIGN KEY (order_id) REFERENCES orders(id),
  FOREIGN KEY (product_id) REFERENCES products(id)
);`,
		data: `
INSERT INTO customers (name, email) VALUES
  ('Dana Scott', 'dana@example.com'),
  ('Eli Turner', 'eli@example.com');

INSERT INTO products (sku, name, price, stock) VALUES
  ('KB-001', 'Mechanical Keyboard', 89.90, 25),
  ('MS-002', 'Wireless Mouse', 24.50, 80),
  ('MN-003', '27in Monitor', 229.00, 10);

INSERT INTO orders (customer_id, status) VALUES
  (1, 'shipped'),
  (2, 'pending');

INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES
  (1, 1, 1, 89.90),
  (1, 2, 2, 24.50),
  (2, 3, 1, 229.00);`,
		collections: []string{"customers", "products", "orders"},
		documents: map[string]string{
			"products": `[
  {"sku": "KB-001", "name": "Mechanical Keyboard", "price": 89.9, "stock": 25},
  {"sku": "MS-002", "name": "Wireless Mouse", "price": 24.5, "stock": 80}
]`,
		},
	},
}
